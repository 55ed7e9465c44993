package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

type nopEmbedder struct{}

func (nopEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0}, nil
}

func failingDims(context.Context) (int, error) {
	return 0, errors.New("model not loaded")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "graph"}, nopEmbedder{}, failingDims, slog.Default())
	if !errors.Is(err, domain.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Param != "backend" {
		t.Fatalf("expected ConfigError for backend param, got %v", err)
	}
}

func TestOpen_ExplicitSemanticFailureIsFatal(t *testing.T) {
	cfg := Config{Backend: BackendSemantic, QdrantAddr: "localhost:6334", Collection: "docs"}
	_, err := Open(context.Background(), cfg, nopEmbedder{}, failingDims, slog.Default())
	if err == nil {
		t.Fatal("explicit semantic backend must not fall back silently")
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// Declared before the other auto-mode test so the once-per-process degraded
// notice fires here, on the nil logger.
func TestOpen_AutoWithNilLogger(t *testing.T) {
	cfg := Config{Backend: BackendAuto, QdrantAddr: "localhost:6334", Collection: "docs", DataDir: t.TempDir()}
	s, err := Open(context.Background(), cfg, nopEmbedder{}, failingDims, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Kind() != "simple" {
		t.Fatalf("expected simple fallback, got %q", s.Kind())
	}
}

func TestOpen_AutoFallsBackToSimple(t *testing.T) {
	cfg := Config{Backend: BackendAuto, QdrantAddr: "localhost:6334", Collection: "docs", DataDir: t.TempDir()}
	s, err := Open(context.Background(), cfg, nopEmbedder{}, failingDims, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Kind() != "simple" {
		t.Fatalf("expected simple fallback, got %q", s.Kind())
	}
}

func TestOpen_ExplicitSimple(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: BackendSimple, DataDir: t.TempDir()}, nopEmbedder{}, failingDims, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Kind() != "simple" {
		t.Fatalf("Kind = %q", s.Kind())
	}
}
