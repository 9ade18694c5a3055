package record

import (
	"fmt"
	"strings"
)

// NewStore creates a record store based on the DSN.
//   - Empty DSN: in-memory store (development only, nothing persists)
//   - postgres:// or postgresql://: PostgreSQL with pgvector
//   - Anything else: SQLite at the specified path
func NewStore(dsn string, dimension int) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(), nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := NewPgStore(dsn, dimension)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}

	return NewSQLiteStore(dsn)
}
