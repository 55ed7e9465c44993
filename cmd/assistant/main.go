// Package main implements the assistant service: it owns the document store,
// consumes ingest requests from NATS, and serves the retrieval API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sergey0703/aiassistant/engine/assistant"
	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/engine/ingest"
	"github.com/Sergey0703/aiassistant/engine/retrieval"
	"github.com/Sergey0703/aiassistant/engine/scraper"
	"github.com/Sergey0703/aiassistant/engine/store"
	"github.com/Sergey0703/aiassistant/pkg/mid"
	"github.com/Sergey0703/aiassistant/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	NATSURL     string
	Backend     string
	QdrantAddr  string
	Collection  string
	DataDir     string
	OllamaURL   string
	EmbedModel  string
	SiteConfigs string
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		NATSURL:     envOr("NATS_URL", nats.DefaultURL),
		Backend:     envOr("STORE_BACKEND", store.BackendAuto),
		QdrantAddr:  envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "assistant_documents"),
		DataDir:     envOr("DATA_DIR", "./data"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "nomic-embed-text"),
		SiteConfigs: envOr("SITE_CONFIG_FILE", ""),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// --- Open the document store ---
	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
	st, err := store.Open(ctx, store.Config{
		Backend:    cfg.Backend,
		QdrantAddr: cfg.QdrantAddr,
		Collection: cfg.Collection,
		DataDir:    cfg.DataDir,
	}, embedder, embedder.Dimensions, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store ready", "backend", st.Kind())

	// --- Site extraction configs ---
	registry := scraper.DefaultRegistry()
	if cfg.SiteConfigs != "" {
		registry, err = scraper.LoadRegistry(cfg.SiteConfigs)
		if err != nil {
			return fmt.Errorf("load site configs: %w", err)
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	scrapeMetrics := scraper.NewMetrics(promReg)

	a := assistant.New(st, registry, scrapeMetrics, logger)

	// --- NATS ingest consumer ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	sub, err := ingest.StartConsumer(nc, ingest.Deps{Store: st, Logger: logger})
	if err != nil {
		return fmt.Errorf("start ingest consumer: %w", err)
	}
	defer sub.Unsubscribe()

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/search", handleSearch(a, logger))
	mux.HandleFunc("GET /api/documents", handleDocuments(a, logger))
	mux.HandleFunc("DELETE /api/documents/{id}", handleDelete(a, logger))
	mux.HandleFunc("PATCH /api/documents/{id}", handleUpdate(a, logger))
	mux.HandleFunc("GET /api/stats", handleStats(a, logger))
	mux.HandleFunc("POST /api/scrape", handleScrape(a, logger))
	mux.Handle("GET /metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("assistant"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("assistant server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleSearch(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, `{"error":"q is required"}`, http.StatusBadRequest)
			return
		}
		opts := retrieval.Options{Category: r.URL.Query().Get("category")}
		if v := r.URL.Query().Get("limit"); v != "" {
			opts.Limit, _ = strconv.Atoi(v)
		}

		resp, err := a.Search(r.Context(), q, opts)
		if err != nil {
			logger.Error("search failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results":     resp.Results,
			"store_empty": resp.StoreEmpty,
		})
	}
}

func handleDocuments(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := a.Documents(r.Context())
		if err != nil {
			logger.Error("list documents failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"documents": docs, "count": len(docs)})
	}
}

func handleDelete(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := a.DeleteDocument(r.Context(), r.PathValue("id"))
		if err != nil {
			logger.Error("delete failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, `{"error":"document not found"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpdateRequest is the JSON body for PATCH /api/documents/{id}.
type UpdateRequest struct {
	Content  *string        `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func handleUpdate(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		ok, err := a.UpdateDocument(r.Context(), r.PathValue("id"), domain.DocumentUpdate{
			Content:  req.Content,
			Metadata: req.Metadata,
		})
		if err != nil {
			logger.Error("update failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, `{"error":"document not found"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleStats(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := a.Stats(r.Context())
		if err != nil {
			logger.Error("stats failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

// ScrapeRequest is the JSON body for POST /api/scrape.
type ScrapeRequest struct {
	URLs    string   `json:"urls,omitempty"` // "ukraine" or "ireland" for the curated lists
	Custom  []string `json:"custom,omitempty"`
	DelayMS int      `json:"delay_ms,omitempty"`
	Ingest  bool     `json:"ingest,omitempty"`
}

func handleScrape(a *assistant.Assistant, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		urls := req.Custom
		switch req.URLs {
		case "ukraine":
			urls = append(urls, scraper.UkraineLegalURLs...)
		case "ireland":
			urls = append(urls, scraper.IrelandLegalURLs...)
		}
		if len(urls) == 0 {
			http.Error(w, `{"error":"no urls given"}`, http.StatusBadRequest)
			return
		}

		opts := scraper.BulkOptions{Delay: time.Duration(req.DelayMS) * time.Millisecond}
		if req.Ingest {
			ids, err := a.ScrapeAndIngest(r.Context(), urls, opts)
			if err != nil {
				logger.Error("scrape and ingest failed", "err", err)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"document_ids": ids})
			return
		}

		docs := a.ScrapeMany(r.Context(), urls, opts)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	}
}
