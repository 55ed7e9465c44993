// Package assistant is the façade over the engine: one type that wires the
// ingestion pipeline, the retrieval service, and the scrape engine around a
// single document store.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/engine/ingest"
	"github.com/Sergey0703/aiassistant/engine/retrieval"
	"github.com/Sergey0703/aiassistant/engine/scraper"
	"github.com/Sergey0703/aiassistant/engine/store"
	"github.com/Sergey0703/aiassistant/pkg/fn"
)

// Assistant bundles the engine services behind one API.
type Assistant struct {
	store     store.Store
	pipeline  fn.Stage[ingest.Input, string]
	retriever *retrieval.Service
	scraper   *scraper.Engine
	bulk      *scraper.Coordinator
	log       *slog.Logger
}

// New wires an Assistant around an open store.
func New(st store.Store, registry *scraper.Registry, metrics *scraper.Metrics, log *slog.Logger) *Assistant {
	eng := scraper.New(registry, metrics, log)
	return &Assistant{
		store:     st,
		pipeline:  ingest.NewPipeline(ingest.Deps{Store: st, Logger: log}),
		retriever: retrieval.New(st, log),
		scraper:   eng,
		bulk:      scraper.NewCoordinator(eng, log),
		log:       log,
	}
}

// IngestFile ingests a text file from disk and returns the document id.
func (a *Assistant) IngestFile(ctx context.Context, path, category string) (string, error) {
	in, err := ingest.FromFile(path, category)
	if err != nil {
		return "", err
	}
	return a.runPipeline(ctx, in)
}

// IngestBytes ingests raw bytes under a filename and returns the document id.
func (a *Assistant) IngestBytes(ctx context.Context, filename string, data []byte, category string) (string, error) {
	in, err := ingest.FromBytes(filename, data, category)
	if err != nil {
		return "", err
	}
	return a.runPipeline(ctx, in)
}

// IngestScraped ingests the result of a scrape and returns the document id.
func (a *Assistant) IngestScraped(ctx context.Context, doc *domain.ScrapedDocument) (string, error) {
	return a.runPipeline(ctx, ingest.FromScraped(doc))
}

func (a *Assistant) runPipeline(ctx context.Context, in ingest.Input) (string, error) {
	id, err := a.pipeline(ctx, in).Unwrap()
	if err != nil {
		return "", err
	}
	return id, nil
}

// Search retrieves documents relevant to the query text.
func (a *Assistant) Search(ctx context.Context, text string, opts retrieval.Options) (retrieval.Response, error) {
	return a.retriever.Retrieve(ctx, text, opts)
}

// Documents lists all stored documents, newest first.
func (a *Assistant) Documents(ctx context.Context) ([]domain.Document, error) {
	return a.store.AllDocuments(ctx)
}

// DeleteDocument removes a document and its chunks. Returns false for
// unknown ids.
func (a *Assistant) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return a.store.Delete(ctx, id)
}

// UpdateDocument patches a document's content and/or metadata. Returns false
// for unknown ids.
func (a *Assistant) UpdateDocument(ctx context.Context, id string, upd domain.DocumentUpdate) (bool, error) {
	return a.store.Update(ctx, id, upd)
}

// Stats summarizes the store.
func (a *Assistant) Stats(ctx context.Context) (domain.StoreStats, error) {
	return a.store.Stats(ctx)
}

// ScrapeOne scrapes a single URL. The result is returned, not ingested;
// callers decide whether demo documents are worth storing.
func (a *Assistant) ScrapeOne(ctx context.Context, url string) (*domain.ScrapedDocument, error) {
	return a.scraper.Scrape(ctx, url)
}

// ScrapeMany bulk-scrapes URLs with pacing and bounded concurrency.
func (a *Assistant) ScrapeMany(ctx context.Context, urls []string, opts scraper.BulkOptions) []*domain.ScrapedDocument {
	return a.bulk.ScrapeMany(ctx, urls, opts)
}

// ScrapeAndIngest scrapes URLs and ingests every result, demo documents
// included so offline runs still exercise the full path. It returns the
// stored document ids aligned with the input.
func (a *Assistant) ScrapeAndIngest(ctx context.Context, urls []string, opts scraper.BulkOptions) ([]string, error) {
	docs := a.bulk.ScrapeMany(ctx, urls, opts)
	ids := make([]string, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		id, err := a.IngestScraped(ctx, doc)
		if err != nil {
			return ids, fmt.Errorf("assistant: ingest %s: %w", doc.URL, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// Close releases the underlying store.
func (a *Assistant) Close() error {
	return a.store.Close()
}
