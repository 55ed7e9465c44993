// Package scraper fetches web pages, extracts their main content using
// per-site selector configs, and falls back to a demo placeholder whenever a
// real scrape is impossible. The engine never fails a scrape: callers always
// get a document, and Metadata["real_scraping"] says whether it is genuine.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

const (
	// FetchTimeout bounds a single page fetch.
	FetchTimeout = 15 * time.Second
	// MinContentLength is the floor below which an extraction is treated as
	// failed and replaced by a demo document.
	MinContentLength = 50
	// MaxContentLength caps stored page text.
	MaxContentLength = 10000

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Engine scrapes single URLs.
type Engine struct {
	client   *http.Client
	registry *Registry
	metrics  *Metrics
	log      *slog.Logger
}

// New creates a scrape engine. A nil registry means the built-in defaults;
// a nil metrics is valid and records nothing.
func New(registry *Registry, metrics *Metrics, log *slog.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{
		client: &http.Client{
			Timeout:   FetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		registry: registry,
		metrics:  metrics,
		log:      log,
	}
}

// Scrape fetches one URL and extracts its content. Fetch failures, non-200
// responses, and pages with less than MinContentLength characters of
// extracted text all produce a demo document rather than an error. The only
// error conditions are an empty URL and context cancellation.
func (e *Engine) Scrape(ctx context.Context, rawURL string) (*domain.ScrapedDocument, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, domain.ErrMissingURL
	}
	start := time.Now()

	doc, err := e.scrapeReal(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Warn("scrape failed, producing demo document", "url", rawURL, "error", err)
		demo := demoDocument(rawURL)
		e.metrics.observe(false, time.Since(start))
		return demo, nil
	}

	e.metrics.observe(true, time.Since(start))
	e.log.Info("scraped page",
		"url", rawURL,
		"title", doc.Title,
		"content_length", len(doc.Content),
		"category", doc.Category,
	)
	return doc, nil
}

func (e *Engine) scrapeReal(ctx context.Context, rawURL string) (*domain.ScrapedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,uk;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("scraper: read %s: %w", rawURL, err)
	}

	host := hostOf(rawURL)
	cfg := e.registry.Resolve(host)
	if cfg.Name == "generic" {
		if cmsCfg, ok := e.registry.ResolveCMS(string(body)); ok {
			cmsCfg.Category = cfg.Category
			cfg = cmsCfg
		}
	}

	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", rawURL, err)
	}

	title := extractTitle(root, cfg, host)
	removeMatching(root, cfg.ExcludeSelectors)
	content := extractContent(root, cfg)
	content = cleanText(content)

	if len(content) < MinContentLength {
		return nil, fmt.Errorf("scraper: %s: extracted only %d chars", rawURL, len(content))
	}

	category := cfg.Category
	if category == "" {
		category = categorize(host)
	}
	return &domain.ScrapedDocument{
		URL:      rawURL,
		Title:    title,
		Content:  content,
		Category: category,
		Metadata: map[string]any{
			"real_scraping": true,
			"status":        "success",
			"status_code":   resp.StatusCode,
			"content_type":  resp.Header.Get("Content-Type"),
			"domain":        host,
			"site_config":   cfg.Name,
			"word_count":    len(strings.Fields(content)),
			"char_count":    len(content),
			"scraped_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// demoDocument is the placeholder produced when a real scrape is impossible,
// so downstream ingestion and search flows keep working offline.
func demoDocument(rawURL string) *domain.ScrapedDocument {
	host := hostOf(rawURL)
	return &domain.ScrapedDocument{
		URL:   rawURL,
		Title: "DEMO: Document from " + rawURL,
		Content: fmt.Sprintf(
			"This is demonstration content for %s. The live page could not be retrieved, "+
				"so this placeholder stands in for the real document. It covers the kind of "+
				"material normally published at %s and exists so ingestion and search can be "+
				"exercised without network access.", rawURL, host),
		Category: "demo",
		Metadata: map[string]any{
			"real_scraping": false,
			"status":        "demo",
			"domain":        host,
			"scraped_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func extractTitle(root *html.Node, cfg SiteConfig, host string) string {
	selectors := append([]string{}, cfg.TitleSelectors...)
	selectors = append(selectors, "h1", "title", ".title", ".page-title", ".main-title")
	for _, s := range selectors {
		if n := findFirst(root, parseSelector(s)); n != nil {
			if t := strings.TrimSpace(textContent(n)); t != "" {
				return t
			}
		}
	}
	return "Document from " + host
}

func extractContent(root *html.Node, cfg SiteConfig) string {
	for _, s := range cfg.ContentSelectors {
		if n := findFirst(root, parseSelector(s)); n != nil {
			if t := textContent(n); t != "" {
				return t
			}
		}
	}
	return textContent(root)
}

// cleanText normalizes extracted page text: whitespace is collapsed per line,
// lines of 10 characters or fewer are dropped as navigation debris, repeated
// filler runs are squeezed, and the result is capped at MaxContentLength.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) <= 10 {
			continue
		}
		lines = append(lines, line)
	}
	out := strings.Join(lines, "\n")
	for strings.Contains(out, "....") {
		out = strings.ReplaceAll(out, "....", "...")
	}
	for strings.Contains(out, "----") {
		out = strings.ReplaceAll(out, "----", "---")
	}
	if runes := []rune(out); len(runes) > MaxContentLength {
		out = string(runes[:MaxContentLength]) + "\n\n[Content truncated...]"
	}
	return strings.TrimSpace(out)
}

// categorize assigns a category from the host when the site config has none.
func categorize(host string) string {
	switch {
	case strings.Contains(host, "zakon.rada.gov.ua") || strings.Contains(host, "irishstatutebook"):
		return "legislation"
	case strings.Contains(host, "court.gov.ua") || strings.Contains(host, "courts.ie"):
		return "jurisprudence"
	case strings.Contains(host, "citizensinformation"):
		return "civil_rights"
	case strings.Contains(host, "gov.ua") || strings.Contains(host, "gov.ie"):
		return "government"
	case strings.HasSuffix(host, ".ua"):
		return "ukraine_legal"
	case strings.HasSuffix(host, ".ie"):
		return "ireland_legal"
	default:
		return "scraped"
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
