package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PgStore is a PostgreSQL-based record store using pgvector.
//
// Similarity search is served by an HNSW index over the embedding column
// using inner-product distance, with the user_id filter backed by an
// expression index over metadata->>'user_id'. Concurrent writes to the same
// id resolve last-writer-wins through the upsert statement under READ
// COMMITTED isolation.
type PgStore struct {
	db        *sql.DB
	dimension int
}

// NewPgStore opens a pgvector-backed store and runs migrations.
// The dimension parameter fixes the embedding column width (e.g. 768 for
// nomic-embed-text).
func NewPgStore(dsn string, dimension int) (*PgStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PgStore{db: db, dimension: dimension}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PgStore) migrate() error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memoria (
			id UUID PRIMARY KEY,
			embedding vector(%d),
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_memoria_embedding ON memoria USING hnsw (embedding vector_ip_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_memoria_user_id ON memoria ((metadata->>'user_id'))`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// Get returns the records matching ids; missing ids are omitted.
func (s *PgStore) Get(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, embedding::text, metadata FROM memoria WHERE id IN (%s)`,
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Delete removes records by id, reporting whether anything was removed.
func (s *PgStore) Delete(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM memoria WHERE id IN (%s)`, strings.Join(placeholders, ","))
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
func (s *PgStore) InsertAll(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO memoria (id, embedding, metadata)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata
		`, rec.ID, formatEmbedding(rec.Embedding), metadata)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QueryNearest ranks records owned by userID by maximum inner product.
// pgvector's <#> operator yields the negative inner product, so ascending
// order maximizes the raw inner product.
func (s *PgStore) QueryNearest(ctx context.Context, userID string, query []float64, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding::text, metadata
		FROM memoria
		WHERE metadata->>'user_id' = $1
		ORDER BY embedding <#> $2
		LIMIT $3
	`, userID, formatEmbedding(query), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the database connection pool.
func (s *PgStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	results := []Record{}
	for rows.Next() {
		var rec Record
		var embeddingStr string
		var metadataBytes []byte

		if err := rows.Scan(&rec.ID, &embeddingStr, &metadataBytes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		embedding, err := parseEmbedding(embeddingStr)
		if err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		rec.Embedding = embedding

		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		results = append(results, rec)
	}
	return results, rows.Err()
}

// formatEmbedding converts a float64 slice to pgvector format: "[0.1,0.2,0.3]"
func formatEmbedding(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseEmbedding converts pgvector format back to a float64 slice.
func parseEmbedding(s string) ([]float64, error) {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse component %d: %w", i, err)
		}
		result[i] = v
	}
	return result, nil
}
