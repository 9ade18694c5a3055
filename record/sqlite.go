package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gdarruda/langchain-vector-store-api/record/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-based record store.
//
// SQLite has no vector index, so similarity search narrows candidates with
// the json_extract index on user_id and ranks them by inner product
// in-process. Embeddings are stored as JSON arrays. Writes serialize on the
// database file, so concurrent upserts of the same id are last-writer-wins.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite-backed store at the given path, creating
// the parent directory and schema as needed.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "data/memoria.db"
	}

	dir := filepath.Dir(dsn)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runSQLiteMigrations(db *sql.DB) error {
	data, err := migrations.SQLite.ReadFile("sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// Get returns the records matching ids; missing ids are omitted.
func (s *SQLiteStore) Get(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}

	placeholders, args := sqlitePlaceholders(ids)
	query := fmt.Sprintf(`SELECT id, embedding, metadata FROM memoria WHERE id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanSQLiteRecords(rows)
}

// Delete removes records by id, reporting whether anything was removed.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	placeholders, args := sqlitePlaceholders(ids)
	query := fmt.Sprintf(`DELETE FROM memoria WHERE id IN (%s)`, placeholders)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// InsertAll writes records in one transaction, replacing existing ids.
func (s *SQLiteStore) InsertAll(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		embedding, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO memoria (id, embedding, metadata)
			VALUES (?, ?, ?)`,
			rec.ID, string(embedding), string(metadata),
		)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QueryNearest loads the records owned by userID and ranks them by
// inner product in-process.
func (s *SQLiteStore) QueryNearest(ctx context.Context, userID string, query []float64, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, metadata FROM memoria
		WHERE json_extract(metadata, '$.user_id') = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	candidates, err := scanSQLiteRecords(rows)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return InnerProduct(query, candidates[i].Embedding) > InnerProduct(query, candidates[j].Embedding)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqlitePlaceholders(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func scanSQLiteRecords(rows *sql.Rows) ([]Record, error) {
	results := []Record{}
	for rows.Next() {
		var rec Record
		var embeddingJSON, metadataJSON string

		if err := rows.Scan(&rec.ID, &embeddingJSON, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		if err := json.Unmarshal([]byte(embeddingJSON), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}

		results = append(results, rec)
	}
	return results, rows.Err()
}
