// Package retrieval sits between callers and the document store. It applies
// default search parameters, distinguishes an empty store from a query with
// no matches, and classifies each hit's match type. It never reorders what
// the backend returned.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

// Defaults applied when the caller leaves options zero-valued.
const (
	DefaultLimit        = 5
	DefaultMinRelevance = 0.3
)

// Searcher is the slice of the store the service needs.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
	Kind() string
}

// Options tune a single retrieval call.
type Options struct {
	Limit    int
	Category string
	// MinRelevance is the relevance floor. Zero means the default of 0.3;
	// a negative value explicitly requests no floor at all.
	MinRelevance float64
}

// Response carries results plus whether the store held any documents at all,
// so callers can tell "nothing ingested yet" apart from "no relevant match".
type Response struct {
	Results    []domain.SearchResult
	StoreEmpty bool
}

// Service answers retrieval queries against a document store.
type Service struct {
	store Searcher
	log   *slog.Logger
}

// New creates a retrieval service.
func New(store Searcher, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Retrieve runs a search with defaults applied. Store errors surface
// immediately; there is no retry at this layer.
func (s *Service) Retrieve(ctx context.Context, text string, opts Options) (Response, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	switch {
	case opts.MinRelevance == 0:
		opts.MinRelevance = DefaultMinRelevance
	case opts.MinRelevance < 0:
		opts.MinRelevance = 0
	}

	results, err := s.store.Search(ctx, domain.SearchQuery{
		Text:         text,
		Limit:        opts.Limit,
		Category:     opts.Category,
		MinRelevance: opts.MinRelevance,
	})
	if err != nil {
		return Response{}, fmt.Errorf("retrieval: search: %w", err)
	}

	if len(results) == 0 {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("retrieval: stats: %w", err)
		}
		if stats.TotalDocuments == 0 {
			return Response{StoreEmpty: true}, nil
		}
		return Response{}, nil
	}

	semanticBackend := s.store.Kind() == "semantic"
	for i := range results {
		results[i].MatchType = classify(text, results[i].Content, semanticBackend)
	}

	s.log.Debug("retrieval complete",
		"query_len", len(text),
		"results", len(results),
		"limit", opts.Limit,
	)
	return Response{Results: results}, nil
}

// classify labels a hit: exact when the content contains the query verbatim
// (case-insensitive), otherwise semantic on an embedding backend and partial
// on a keyword backend.
func classify(query, content string, semanticBackend bool) domain.MatchType {
	if q := strings.TrimSpace(query); q != "" &&
		strings.Contains(strings.ToLower(content), strings.ToLower(q)) {
		return domain.MatchExact
	}
	if semanticBackend {
		return domain.MatchSemantic
	}
	return domain.MatchPartial
}
