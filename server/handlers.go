package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gdarruda/langchain-vector-store-api/core"
)

// requestTimeout bounds the embedding-provider call and the index query.
const requestTimeout = 30 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ids, err := deleteIDs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := s.svc.Delete(ctx, ids)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, DeleteResponse{Deleted: deleted})
}

// deleteIDs accepts the id list either as a JSON array body or as a
// comma-joined ids query parameter.
func deleteIDs(r *http.Request) ([]string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(string(body))) > 0 {
		var ids []string
		if err := json.Unmarshal(body, &ids); err != nil {
			return nil, errors.New("body must be a JSON array of id strings")
		}
		return ids, nil
	}

	return splitIDs(r.URL.Query().Get("ids")), nil
}

func (s *Server) handleGetByIDs(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("ids"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	records, err := s.svc.GetByIDs(ctx, ids)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, toDocumentResponses(records))
}

func (s *Server) handleSimilaritySearch(w http.ResponseWriter, r *http.Request) {
	var payload SimilaritySearchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	records, err := s.svc.SimilaritySearchByVector(ctx, payload.Embedding, payload.K, payload.Kwargs.Filter.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, toDocumentResponses(records))
}

func (s *Server) handleAddEmbeddings(w http.ResponseWriter, r *http.Request) {
	var payload AddEmbeddingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ids, err := s.svc.AddEmbeddings(ctx, payload.IDs, payload.Embeddings, payload.Metadatas)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, acceptedIDs(ids))
}

func (s *Server) handleAddTexts(w http.ResponseWriter, r *http.Request) {
	var payload AddTextsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ids, err := s.svc.AddTexts(ctx, payload.IDs, payload.Texts, payload.Metadatas)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, acceptedIDs(ids))
}

func splitIDs(param string) []string {
	if param == "" {
		return []string{}
	}
	return strings.Split(param, ",")
}

func acceptedIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var backendErr *core.BackendError
	if errors.As(err, &backendErr) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	http.Error(w, err.Error(), http.StatusInternalServerError)
}
