// Package service validates and applies record mutations and queries.
package service

import (
	"context"
	"fmt"

	"github.com/gdarruda/langchain-vector-store-api/core"
	"github.com/gdarruda/langchain-vector-store-api/embedder"
	"github.com/gdarruda/langchain-vector-store-api/record"
	"github.com/google/uuid"
)

// Service sits between the gateway and the record store. All payload
// semantics (parallel array lengths, vector dimensions, id uniqueness) are
// checked here before any store call, so a rejected request is never
// partially applied.
type Service struct {
	store     record.Store
	embedder  embedder.Embedder
	dimension int
}

// New creates a Service operating at the given embedding dimension.
// The embedder may be nil, which disables AddTexts.
func New(store record.Store, emb embedder.Embedder, dimension int) *Service {
	return &Service{store: store, embedder: emb, dimension: dimension}
}

// Dimension returns the configured embedding dimension.
func (s *Service) Dimension() int {
	return s.dimension
}

// AddEmbeddings validates and writes pre-computed embedding records,
// returning the accepted ids. An existing id is replaced.
func (s *Service) AddEmbeddings(ctx context.Context, ids []string, embeddings [][]float64, metadatas []map[string]any) ([]string, error) {
	const op = "add embeddings"

	if len(ids) != len(embeddings) || len(ids) != len(metadatas) {
		return nil, core.Invalid(op, core.ErrLengthMismatch)
	}
	if err := validateIDs(op, ids); err != nil {
		return nil, err
	}
	for i, emb := range embeddings {
		if len(emb) != s.dimension {
			return nil, core.Invalidf(op, "%w: vector %d has %d components, want %d",
				core.ErrDimensionMismatch, i, len(emb), s.dimension)
		}
	}

	records := make([]record.Record, len(ids))
	for i, id := range ids {
		metadata := metadatas[i]
		if metadata == nil {
			metadata = map[string]any{}
		}
		records[i] = record.Record{ID: id, Embedding: embeddings[i], Metadata: metadata}
	}

	if err := s.store.InsertAll(ctx, records); err != nil {
		return nil, core.Unavailable(op, err)
	}
	return ids, nil
}

// AddTexts embeds the whole batch of texts with a single provider call and
// writes the resulting records. If the provider fails, nothing is persisted.
func (s *Service) AddTexts(ctx context.Context, ids []string, texts []string, metadatas []map[string]any) ([]string, error) {
	const op = "add texts"

	if s.embedder == nil {
		return nil, core.Unavailable(op, fmt.Errorf("no embedding provider configured"))
	}
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return nil, core.Invalid(op, core.ErrLengthMismatch)
	}
	if err := validateIDs(op, ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, core.Unavailable(op, fmt.Errorf("embed texts: %w", err))
	}
	if len(embeddings) != len(texts) {
		return nil, core.Unavailable(op, fmt.Errorf("provider returned %d embeddings for %d texts", len(embeddings), len(texts)))
	}

	return s.AddEmbeddings(ctx, ids, embeddings, metadatas)
}

// Delete removes records by id, reporting whether anything was removed.
// Nonexistent ids are a no-op.
func (s *Service) Delete(ctx context.Context, ids []string) (bool, error) {
	deleted, err := s.store.Delete(ctx, wellFormedIDs(ids))
	if err != nil {
		return false, core.Unavailable("delete", err)
	}
	return deleted, nil
}

// GetByIDs returns the existing records among ids; missing ids are omitted.
func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]record.Record, error) {
	records, err := s.store.Get(ctx, wellFormedIDs(ids))
	if err != nil {
		return nil, core.Unavailable("get by ids", err)
	}
	return records, nil
}

// SimilaritySearchByVector returns the k records owned by userID nearest to
// embedding by raw inner product. k <= 0 and an unmatched userID both yield
// an empty result.
func (s *Service) SimilaritySearchByVector(ctx context.Context, embedding []float64, k int, userID string) ([]record.Record, error) {
	const op = "similarity search"

	if userID == "" {
		return nil, core.Invalid(op, core.ErrMissingFilter)
	}
	if len(embedding) != s.dimension {
		return nil, core.Invalidf(op, "%w: query has %d components, want %d",
			core.ErrDimensionMismatch, len(embedding), s.dimension)
	}
	if k <= 0 {
		return []record.Record{}, nil
	}

	records, err := s.store.QueryNearest(ctx, userID, embedding, k)
	if err != nil {
		return nil, core.Unavailable(op, err)
	}
	return records, nil
}

// wellFormedIDs drops non-UUID ids from read/delete paths. Such ids can
// never exist in the store, so they are misses rather than errors, and the
// Postgres UUID column would reject them outright.
func wellFormedIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return valid
}

func validateIDs(op string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return core.Invalidf(op, "%w: %q is not a UUID", core.ErrInvalidID, id)
		}
		if _, ok := seen[id]; ok {
			return core.Invalidf(op, "%w: %q", core.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
