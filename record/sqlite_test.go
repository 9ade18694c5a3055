package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memoria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.InsertAll(ctx, seedRecords()))

	got, err := s.Get(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, []float64{1, 0}, got[0].Embedding)
	assert.Equal(t, map[string]any{"user_id": "u1", "data": "hello"}, got[0].Metadata)
}

func TestSQLiteStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.InsertAll(ctx, seedRecords()))

	deleted, err := s.Delete(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, []string{"a"})
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.Delete(ctx, nil)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLiteStoreInsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.InsertAll(ctx, seedRecords()))

	require.NoError(t, s.InsertAll(ctx, []Record{
		{ID: "a", Embedding: []float64{0.5, 0.5}, Metadata: map[string]any{"user_id": "u9", "data": "replaced"}},
	}))

	got, err := s.Get(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float64{0.5, 0.5}, got[0].Embedding)
	assert.Equal(t, "u9", got[0].UserID())
}

func TestSQLiteStoreQueryNearest(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.InsertAll(ctx, seedRecords()))

	got, err := s.QueryNearest(ctx, "u1", []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "hello", got[0].PageContent())

	got, err = s.QueryNearest(ctx, "u1", []float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)

	got, err = s.QueryNearest(ctx, "u2", []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	got, err = s.QueryNearest(ctx, "u1", []float64{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
