// Package ingest provides the ingestion pipeline that turns raw text into
// chunked, stored documents: validation, transformation, and storage stages
// composed with pkg/fn, plus a NATS consumer feeding the pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Sergey0703/aiassistant/engine/chunk"
	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/pkg/fn"
	"github.com/Sergey0703/aiassistant/pkg/natsutil"
)

const (
	// Subject is the NATS subject for incoming ingest requests.
	Subject = "assistant.ingest"
	// DLQSubject receives requests the pipeline could not process. There is
	// no automatic retry: a failed request goes straight to the DLQ and a
	// human decides what to do with it.
	DLQSubject = "assistant.ingest.dlq"
	// MinContentLength is the floor below which content is rejected as empty.
	MinContentLength = 10
)

// Input is one ingest request: raw text plus identity and classification.
type Input struct {
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FromScraped converts a scrape result into an ingest request. The URL
// doubles as the filename so re-scraping the same page stays idempotent.
func FromScraped(doc *domain.ScrapedDocument) Input {
	meta := map[string]any{"title": doc.Title, "url": doc.URL}
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return Input{
		Filename: doc.URL,
		Content:  doc.Content,
		Category: doc.Category,
		Metadata: meta,
	}
}

// Ingester is the slice of the store the pipeline needs.
type Ingester interface {
	Ingest(ctx context.Context, doc domain.Document) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Store  Ingester
	Logger *slog.Logger
}

// --- Pipeline stages ---

// Validate rejects inputs with no filename or too little content.
var Validate fn.Stage[Input, Input] = func(_ context.Context, in Input) fn.Result[Input] {
	if in.Filename == "" {
		return fn.Errf[Input]("ingest: input has no filename")
	}
	if len(in.Content) < MinContentLength {
		return fn.Err[Input](fmt.Errorf("ingest: %s: %w", in.Filename, domain.ErrEmptyDocument))
	}
	return fn.Ok(in)
}

// Transform builds a chunked document with a content-addressed id.
var Transform fn.Stage[Input, domain.Document] = func(_ context.Context, in Input) fn.Result[domain.Document] {
	chunks, err := chunk.Split(in.Content, chunk.DefaultSize, chunk.DefaultOverlap)
	if err != nil {
		return fn.Err[domain.Document](fmt.Errorf("ingest: chunk %s: %w", in.Filename, err))
	}
	return fn.Ok(domain.Document{
		ID:        chunk.DocumentID(in.Filename, in.Content),
		Filename:  in.Filename,
		Category:  in.Category,
		Content:   in.Content,
		Chunks:    chunks,
		Metadata:  in.Metadata,
		CreatedAt: time.Now(),
	})
}

// NewStore creates the storage stage.
func NewStore(store Ingester) fn.Stage[domain.Document, string] {
	return func(ctx context.Context, doc domain.Document) fn.Result[string] {
		if err := store.Ingest(ctx, doc); err != nil {
			return fn.Err[string](fmt.Errorf("ingest: store %s: %w", doc.ID, err))
		}
		return fn.Ok(doc.ID)
	}
}

// LoggedTap returns a pass-through stage that logs entry with a timestamp.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return fn.TapStage(func(_ context.Context, _ T) {
		log.Debug("stage.enter", "stage", name)
	})
}

// NewPipeline composes Validate, Transform, and Store with tracing.
func NewPipeline(deps Deps) fn.Stage[Input, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[Input]("validate", log), fn.TracedStage("ingest.validate", Validate))
	transformed := fn.Then(validated, fn.TracedStage("ingest.transform", Transform))
	return fn.Then(transformed, fn.TracedStage("ingest.store", NewStore(deps.Store)))
}

// dlqMessage is published to the DLQ on pipeline failure.
type dlqMessage struct {
	Input Input  `json:"input"`
	Error string `json:"error"`
}

// StartConsumer subscribes the pipeline to the ingest subject. Failed
// requests go directly to the DLQ; the pipeline never retries on its own.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return natsutil.Subscribe(nc, Subject, func(ctx context.Context, in Input) {
		result := pipeline(ctx, in)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"filename", in.Filename,
			)
			dlq := dlqMessage{Input: in, Error: pipeErr.Error()}
			if err := natsutil.Publish(ctx, nc, DLQSubject, dlq); err != nil {
				log.Error("ingest: DLQ publish failed", "error", err)
			}
			return
		}

		docID, _ := result.Unwrap()
		log.Info("ingest: stored", "doc_id", docID, "filename", in.Filename)
	})
}
