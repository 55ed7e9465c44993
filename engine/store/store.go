// Package store defines the pluggable document store interface and the
// backend selection logic. Two backends exist: the Qdrant-based semantic
// backend and the SQLite-based simple backend. Selection happens once at
// startup; callers only ever see the Store interface.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/engine/store/semantic"
	"github.com/Sergey0703/aiassistant/engine/store/simple"
)

// Store is the document store contract shared by all backends.
type Store interface {
	Ingest(ctx context.Context, doc domain.Document) error
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
	AllDocuments(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, upd domain.DocumentUpdate) (bool, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
	Kind() string
	Close() error
}

// Backend selection modes.
const (
	BackendAuto     = "auto"
	BackendSemantic = "semantic"
	BackendSimple   = "simple"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string // auto, semantic, or simple
	QdrantAddr string
	Collection string
	DataDir    string // directory for the simple backend's database file
}

// degradedOnce ensures the degraded-mode notice is logged exactly once per
// process no matter how many components ask for a store.
var degradedOnce sync.Once

// Open creates the configured backend. In auto mode it probes the embedding
// model and Qdrant, falling back to the simple backend when either is
// unavailable; explicitly requesting the semantic backend turns probe
// failures into fatal configuration errors instead.
func Open(ctx context.Context, cfg Config, embed semantic.Embedder, dims func(context.Context) (int, error), log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Backend {
	case BackendSimple:
		return openSimple(cfg)
	case BackendSemantic:
		s, err := openSemantic(ctx, cfg, embed, dims)
		if err != nil {
			return nil, domain.NewConfigError("backend", cfg.Backend, err)
		}
		return s, nil
	case BackendAuto, "":
		s, err := openSemantic(ctx, cfg, embed, dims)
		if err == nil {
			return s, nil
		}
		degradedOnce.Do(func() {
			log.Warn("semantic backend unavailable, falling back to keyword search",
				"error", err,
				"qdrant_addr", cfg.QdrantAddr,
			)
		})
		return openSimple(cfg)
	default:
		return nil, domain.NewConfigError("backend", cfg.Backend, domain.ErrUnknownBackend)
	}
}

func openSemantic(ctx context.Context, cfg Config, embed semantic.Embedder, dims func(context.Context) (int, error)) (Store, error) {
	d, err := dims(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: probe embedding model: %w", err)
	}
	s, err := semantic.New(cfg.QdrantAddr, cfg.Collection, embed)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureCollection(ctx, d); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openSimple(cfg Config) (Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	return simple.Open(filepath.Join(dir, "documents.db"))
}
