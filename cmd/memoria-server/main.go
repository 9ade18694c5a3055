package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	memoria "github.com/gdarruda/langchain-vector-store-api"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	dimension := memoria.DefaultDimension
	if v := os.Getenv("EMBED_DIMENSION"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid EMBED_DIMENSION %q: %v", v, err)
		}
		dimension = d
	}

	srv, err := memoria.NewServer(memoria.ServerConfig{
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		Dimension:   dimension,
		OllamaURL:   getEnvOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  getEnvOr("EMBED_MODEL", "nomic-embed-text:latest"),
	})
	if err != nil {
		log.Fatalf("initialize server: %v", err)
	}

	addr := getEnvOr("ADDR", ":8082")
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting memoria server on http://localhost%s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
