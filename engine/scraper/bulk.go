package scraper

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/pkg/fn"
)

// DefaultMaxConcurrent bounds in-flight fetches during a bulk scrape.
const DefaultMaxConcurrent = 3

// BulkOptions tune a bulk scrape run.
type BulkOptions struct {
	// Delay is the minimum interval between fetch starts. Zero means no
	// pacing.
	Delay time.Duration
	// MaxConcurrent bounds simultaneous fetches; defaults to
	// DefaultMaxConcurrent when <= 0.
	MaxConcurrent int
}

// Coordinator runs bulk scrapes over many URLs with pacing and a concurrency
// bound. Individual failures never abort the run; failed URLs yield demo
// documents like single scrapes do.
type Coordinator struct {
	engine *Engine
	log    *slog.Logger
}

// NewCoordinator creates a bulk scrape coordinator.
func NewCoordinator(engine *Engine, log *slog.Logger) *Coordinator {
	return &Coordinator{engine: engine, log: log}
}

// ScrapeMany scrapes all URLs and returns results aligned by index with the
// input. An entry is nil only when the context was cancelled before that URL
// was fetched.
func (c *Coordinator) ScrapeMany(ctx context.Context, urls []string, opts BulkOptions) []*domain.ScrapedDocument {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	var limiter *rate.Limiter
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}

	start := time.Now()
	results := fn.ParMapResult(ctx, urls, maxConcurrent, func(ctx context.Context, u string) fn.Result[*domain.ScrapedDocument] {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fn.Err[*domain.ScrapedDocument](err)
			}
		}
		doc, err := c.engine.Scrape(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return fn.Err[*domain.ScrapedDocument](ctx.Err())
			}
			// empty URL; record a placeholder so the slice stays aligned
			return fn.Ok(demoDocument(u))
		}
		return fn.Ok(doc)
	})

	docs := make([]*domain.ScrapedDocument, len(urls))
	real, demo := 0, 0
	for i, r := range results {
		doc, _ := r.Unwrap()
		docs[i] = doc
		switch {
		case doc == nil:
		case doc.RealScrape():
			real++
		default:
			demo++
		}
	}
	c.log.Info("bulk scrape finished",
		"urls", len(urls),
		"real", real,
		"demo", demo,
		"duration", time.Since(start),
	)
	return docs
}
