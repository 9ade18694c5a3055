package record

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory record store for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Get returns the records matching ids; missing ids are omitted.
func (s *MemoryStore) Get(ctx context.Context, ids []string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			results = append(results, rec)
		}
	}
	return results, nil
}

// Delete removes records by id, reporting whether anything was removed.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := false
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			deleted = true
		}
	}
	return deleted, nil
}

// InsertAll writes records, replacing existing ones by id.
func (s *MemoryStore) InsertAll(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// QueryNearest ranks records owned by userID by brute-force inner product.
func (s *MemoryStore) QueryNearest(ctx context.Context, userID string, query []float64, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		rec   Record
		score float64
	}

	candidates := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		if rec.UserID() != userID {
			continue
		}
		candidates = append(candidates, scored{rec: rec, score: InnerProduct(query, rec.Embedding)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Record, len(candidates))
	for i, c := range candidates {
		results[i] = c.rec
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
