// Package domain defines the core types shared across the assistant engine:
// documents, search results, scraped pages, and the error taxonomy. It acts as
// the contract between the chunker, the vector store backends, the retrieval
// service, and the scrape engine.
package domain

import "time"

// Document is the unit of ingestion. Its ID is content-addressed: derived from
// the filename plus a short content hash, so re-ingesting identical content
// under the same name is idempotent.
type Document struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Category  string         `json:"category"`
	Content   string         `json:"content"`
	Chunks    []string       `json:"chunks,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MatchType classifies why a search result matched.
type MatchType string

const (
	// MatchExact means the query appears verbatim (case-insensitive) in the result.
	MatchExact MatchType = "exact"
	// MatchSemantic means the result matched by vector similarity only.
	MatchSemantic MatchType = "semantic"
	// MatchPartial means the result matched by token overlap only.
	MatchPartial MatchType = "partial"
)

// SearchResult is a single retrieval hit. Produced per query, never persisted.
// Relevance is always in [0,1]; ordering between results is by Relevance alone.
// MatchType is informational metadata and never affects ranking.
type SearchResult struct {
	Content    string            `json:"content"`
	Filename   string            `json:"filename"`
	DocumentID string            `json:"document_id"`
	Relevance  float64           `json:"relevance_score"`
	MatchType  MatchType         `json:"match_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchQuery describes one search against a vector store backend.
type SearchQuery struct {
	Text string
	// Limit caps the number of results; backends default it when <= 0.
	Limit int
	// Category, when non-empty, restricts results to documents whose
	// category equals it exactly.
	Category string
	// MinRelevance is a hard floor: results scoring below it are excluded,
	// not merely down-ranked.
	MinRelevance float64
}

// DocumentUpdate describes a partial update. Nil fields keep current values.
// Backends implement update as delete-then-reingest, so only the id value is
// stable across an update, not object identity.
type DocumentUpdate struct {
	Content  *string
	Metadata map[string]any
}

// ScrapedDocument is the output of one scrape-engine run. The engine never
// fails: unreachable sites and thin pages yield a demo placeholder with
// Metadata["real_scraping"] == false.
type ScrapedDocument struct {
	URL      string         `json:"url"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RealScrape reports whether the document carries genuinely extracted content
// rather than a demo placeholder.
func (d ScrapedDocument) RealScrape() bool {
	v, ok := d.Metadata["real_scraping"].(bool)
	return ok && v
}

// StoreStats summarizes a vector store backend.
type StoreStats struct {
	TotalDocuments int      `json:"total_documents"`
	Categories     []string `json:"categories"`
	Backend        string   `json:"backend_type"`
}
