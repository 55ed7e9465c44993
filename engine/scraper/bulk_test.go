package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScrapeMany_AlignsResultsWithInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><main><p>Document served for path %s with plenty of
content so the extraction passes the minimum length requirement.</p></main></body></html>`, r.URL.Path)
	}))
	defer srv.Close()

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/doc/%d", srv.URL, i)
	}

	c := NewCoordinator(testEngine(), slog.Default())
	results := c.ScrapeMany(context.Background(), urls, BulkOptions{})

	if len(results) != len(urls) {
		t.Fatalf("got %d results for %d urls", len(results), len(urls))
	}
	for i, doc := range results {
		if doc == nil {
			t.Fatalf("result %d is nil", i)
		}
		if doc.URL != urls[i] {
			t.Fatalf("result %d: url %q, want %q", i, doc.URL, urls[i])
		}
	}
}

func TestScrapeMany_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		mu.Lock()
		if cur > peak.Load() {
			peak.Store(cur)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, `<html><body><main><p>Enough content here to count as a real page
for the purposes of this concurrency-bounding test case.</p></main></body></html>`)
	}))
	defer srv.Close()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/doc/%d", srv.URL, i)
	}

	c := NewCoordinator(testEngine(), slog.Default())
	c.ScrapeMany(context.Background(), urls, BulkOptions{MaxConcurrent: 3})

	if p := peak.Load(); p > 3 {
		t.Fatalf("in-flight high-water mark %d exceeds 3", p)
	}
}

func TestScrapeMany_MixedOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><main><p>A perfectly reasonable page body with enough
text in it to be extracted as genuine scraped content.</p></main></body></html>`)
	}))
	defer srv.Close()

	urls := []string{srv.URL, "http://127.0.0.1:1/unreachable", srv.URL}
	c := NewCoordinator(testEngine(), slog.Default())
	results := c.ScrapeMany(context.Background(), urls, BulkOptions{})

	if !results[0].RealScrape() || !results[2].RealScrape() {
		t.Fatal("reachable urls must scrape for real")
	}
	if results[1].RealScrape() {
		t.Fatal("unreachable url must yield a demo document")
	}
}

func TestScrapeMany_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(testEngine(), slog.Default())
	results := c.ScrapeMany(ctx, []string{"http://example.com/a", "http://example.com/b"}, BulkOptions{Delay: time.Second})

	for i, doc := range results {
		if doc != nil {
			t.Fatalf("result %d dispatched after cancellation", i)
		}
	}
}
