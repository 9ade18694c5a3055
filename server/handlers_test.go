package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gdarruda/langchain-vector-store-api/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls   int
	vectors [][]float64
	err     error
}

func (f *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

func newTestHandler(t *testing.T, emb *stubEmbedder) http.Handler {
	t.Helper()
	cfg := Config{Store: record.NewMemoryStore(), Dimension: 2}
	if emb != nil {
		cfg.Embedder = emb
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, body))
	return rr
}

func addRecords(t *testing.T, h http.Handler) (idA, idB string) {
	t.Helper()
	idA, idB = uuid.NewString(), uuid.NewString()
	rr := doJSON(t, h, http.MethodPost, "/add-embeddings", AddEmbeddingsPayload{
		Embeddings: [][]float64{{1, 0}, {0, 1}},
		Metadatas: []map[string]any{
			{"user_id": "u1", "data": "hello"},
			{"user_id": "u1", "data": "world"},
		},
		IDs: []string{idA, idB},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return idA, idB
}

func TestAddEmbeddingsReturnsAcceptedIDs(t *testing.T) {
	h := newTestHandler(t, nil)
	idA, _ := addRecords(t, h)

	rr := doJSON(t, h, http.MethodPost, "/add-embeddings", AddEmbeddingsPayload{
		Embeddings: [][]float64{{1, 1}},
		Metadatas:  []map[string]any{{"user_id": "u2"}},
		IDs:        []string{idA},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ids))
	assert.Equal(t, []string{idA}, ids)
}

func TestGetByIDsOmitsMissing(t *testing.T) {
	h := newTestHandler(t, nil)
	idA, idB := addRecords(t, h)

	path := fmt.Sprintf("/get-by-ids?ids=%s,%s,%s", idA, idB, uuid.NewString())
	rr := doJSON(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &docs))
	require.Len(t, docs, 2)

	byID := map[string]DocumentResponse{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "hello", byID[idA].PageContent)
	assert.Equal(t, "world", byID[idB].PageContent)
	assert.Equal(t, "u1", byID[idA].Metadata["user_id"])
}

func TestGetByIDsEmptyParam(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/get-by-ids", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestSimilaritySearchByVector(t *testing.T) {
	h := newTestHandler(t, nil)
	idA, _ := addRecords(t, h)

	rr := doJSON(t, h, http.MethodPost, "/similarity-search-by-vector", SimilaritySearchPayload{
		Embedding: []float64{1, 0},
		K:         1,
		Kwargs:    SearchKwargs{Filter: SearchFilter{UserID: "u1"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, idA, docs[0].ID)
	assert.Equal(t, "hello", docs[0].PageContent)
}

func TestSimilaritySearchOtherUserIsEmpty(t *testing.T) {
	h := newTestHandler(t, nil)
	addRecords(t, h)

	rr := doJSON(t, h, http.MethodPost, "/similarity-search-by-vector", SimilaritySearchPayload{
		Embedding: []float64{1, 0},
		K:         5,
		Kwargs:    SearchKwargs{Filter: SearchFilter{UserID: "u2"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestSimilaritySearchZeroK(t *testing.T) {
	h := newTestHandler(t, nil)
	addRecords(t, h)

	rr := doJSON(t, h, http.MethodPost, "/similarity-search-by-vector", SimilaritySearchPayload{
		Embedding: []float64{1, 0},
		K:         0,
		Kwargs:    SearchKwargs{Filter: SearchFilter{UserID: "u1"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestSimilaritySearchDimensionMismatch(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/similarity-search-by-vector", SimilaritySearchPayload{
		Embedding: []float64{1, 0, 0},
		K:         5,
		Kwargs:    SearchKwargs{Filter: SearchFilter{UserID: "u1"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSimilaritySearchMissingFilter(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/similarity-search-by-vector", SimilaritySearchPayload{
		Embedding: []float64{1, 0},
		K:         5,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteWithBody(t *testing.T) {
	h := newTestHandler(t, nil)
	idA, _ := addRecords(t, h)

	rr := doJSON(t, h, http.MethodDelete, "/delete", []string{idA, uuid.NewString()})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DeleteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)

	rr = doJSON(t, h, http.MethodDelete, "/delete", []string{idA})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Deleted)
}

func TestDeleteWithQueryParam(t *testing.T) {
	h := newTestHandler(t, nil)
	_, idB := addRecords(t, h)

	rr := doJSON(t, h, http.MethodDelete, "/delete?ids="+idB, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DeleteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
}

func TestDeleteMalformedBody(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/delete", bytes.NewReader([]byte(`{"ids": 1}`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddTextsEmbedsServerSide(t *testing.T) {
	emb := &stubEmbedder{vectors: [][]float64{{1, 0}, {0, 1}}}
	h := newTestHandler(t, emb)

	idX, idY := uuid.NewString(), uuid.NewString()
	rr := doJSON(t, h, http.MethodPost, "/add-texts", AddTextsPayload{
		Texts: []string{"foo", "bar"},
		Metadatas: []map[string]any{
			{"user_id": "u1", "data": "foo"},
			{"user_id": "u1", "data": "bar"},
		},
		IDs: []string{idX, idY},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var ids []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ids))
	assert.Equal(t, []string{idX, idY}, ids)
	assert.Equal(t, 1, emb.calls)

	rr = doJSON(t, h, http.MethodGet, "/get-by-ids?ids="+idX, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "foo", docs[0].PageContent)
}

func TestAddTextsProviderFailure(t *testing.T) {
	emb := &stubEmbedder{err: fmt.Errorf("connection refused")}
	h := newTestHandler(t, emb)

	id := uuid.NewString()
	rr := doJSON(t, h, http.MethodPost, "/add-texts", AddTextsPayload{
		Texts:     []string{"foo"},
		Metadatas: []map[string]any{{}},
		IDs:       []string{id},
	})
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/get-by-ids?ids="+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAddEmbeddingsLengthMismatchRejected(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/add-embeddings", AddEmbeddingsPayload{
		Embeddings: [][]float64{{1, 0}},
		Metadatas:  []map[string]any{{}, {}},
		IDs:        []string{uuid.NewString()},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddEmbeddingsMalformedJSON(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/add-embeddings", bytes.NewReader([]byte(`{`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpsertReplacesExistingRecord(t *testing.T) {
	h := newTestHandler(t, nil)
	idA, _ := addRecords(t, h)

	rr := doJSON(t, h, http.MethodPost, "/add-embeddings", AddEmbeddingsPayload{
		Embeddings: [][]float64{{0, 1}},
		Metadatas:  []map[string]any{{"user_id": "u1", "data": "replaced"}},
		IDs:        []string{idA},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/get-by-ids?ids="+idA, nil)
	var docs []DocumentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "replaced", docs[0].PageContent)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}
