// Package server exposes the record store over a stateless HTTP/JSON API.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gdarruda/langchain-vector-store-api/embedder"
	"github.com/gdarruda/langchain-vector-store-api/record"
	"github.com/gdarruda/langchain-vector-store-api/service"
)

// DefaultDimension matches nomic-embed-text, the reference deployment model.
const DefaultDimension = 768

// Config configures a new Server instance.
type Config struct {
	Store       record.Store      // Optional: inject a custom record store
	Embedder    embedder.Embedder // Optional: inject a custom embedding provider
	DatabaseDSN string            // Database connection string (postgres:// or sqlite path)
	Dimension   int               // Embedding dimension (default: 768)
	OllamaURL   string            // Ollama base URL, used when Embedder is nil
	EmbedModel  string            // Embedding model (default: nomic-embed-text:latest)
}

// Server is the HTTP gateway over the record service. It holds no
// cross-request state; every request is a self-contained transaction
// against the record store.
type Server struct {
	svc   *service.Service
	store record.Store
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = DefaultDimension
	}

	store := cfg.Store
	if store == nil {
		var err error
		store, err = record.NewStore(cfg.DatabaseDSN, dimension)
		if err != nil {
			return nil, fmt.Errorf("initialize record store: %w", err)
		}
		if cfg.DatabaseDSN == "" {
			log.Printf("[store] No DSN configured, using in-memory record store")
		} else {
			log.Printf("[store] Initialized record store")
		}
	}

	emb := cfg.Embedder
	if emb == nil && cfg.OllamaURL != "" {
		model := cfg.EmbedModel
		if model == "" {
			model = "nomic-embed-text:latest"
		}
		emb = embedder.NewOllamaClient(cfg.OllamaURL, model)
		log.Printf("[embedder] Using Ollama at %s (model: %s)", cfg.OllamaURL, model)
	}

	return &Server{
		svc:   service.New(store, emb, dimension),
		store: store,
	}, nil
}

// Close closes the server and releases store resources.
func (s *Server) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("DELETE /delete", s.handleDelete)
	mux.HandleFunc("GET /get-by-ids", s.handleGetByIDs)
	mux.HandleFunc("POST /similarity-search-by-vector", s.handleSimilaritySearch)
	mux.HandleFunc("POST /add-embeddings", s.handleAddEmbeddings)
	mux.HandleFunc("POST /add-texts", s.handleAddTexts)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
