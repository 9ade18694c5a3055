// Package record provides durable storage and similarity search for
// embedding records.
package record

import "context"

// Record is the persisted unit: an id, a fixed-dimension embedding and an
// opaque metadata document. Two metadata keys are reserved by convention:
// "data" holds the source text that produced the embedding and "user_id"
// scopes ownership for filtered search. Both may be absent.
type Record struct {
	ID        string         `json:"id"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

// PageContent returns the metadata "data" value when it is present and a
// string, and "" otherwise.
func (r Record) PageContent() string {
	if v, ok := r.Metadata["data"].(string); ok {
		return v
	}
	return ""
}

// UserID returns the metadata "user_id" value when it is present and a
// string, and "" otherwise.
func (r Record) UserID() string {
	if v, ok := r.Metadata["user_id"].(string); ok {
		return v
	}
	return ""
}

// Store provides keyed record storage and inner-product similarity search.
type Store interface {
	// Get returns the subset of existing records matching ids, in no
	// guaranteed order. Missing ids are silently omitted.
	Get(ctx context.Context, ids []string) ([]Record, error)

	// Delete removes matching records and reports whether at least one
	// record was actually deleted. Nonexistent ids are a no-op.
	Delete(ctx context.Context, ids []string) (bool, error)

	// InsertAll writes records atomically: a failed row fails the whole
	// batch. An existing id is replaced (upsert), so re-submitting a batch
	// with the same caller-supplied ids is idempotent.
	InsertAll(ctx context.Context, records []Record) error

	// QueryNearest returns up to limit records whose metadata user_id
	// equals userID, ordered by descending inner product against query.
	// Ordering among equal scores is arbitrary. A limit <= 0 returns an
	// empty result.
	QueryNearest(ctx context.Context, userID string, query []float64, limit int) ([]Record, error)

	// Close releases backend resources.
	Close() error
}
