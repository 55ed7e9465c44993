// Package simple implements a keyword-matching vector store backend on
// SQLite. It needs no embedding model and no external services, which makes
// it the degraded-mode fallback when the semantic backend is unreachable.
package simple

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/Sergey0703/aiassistant/engine/chunk"
	"github.com/Sergey0703/aiassistant/engine/domain"
)

// DefaultLimit caps search results when the query does not set one.
const DefaultLimit = 5

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id                 TEXT PRIMARY KEY,
	parent_document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index        INTEGER NOT NULL,
	content            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_document_id);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
`

// Store is a SQLite-backed document store with token-overlap scoring.
// SQLite allows one writer at a time; the mutex serializes writes so
// concurrent ingests queue instead of failing with SQLITE_BUSY.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("simple: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("simple: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Kind identifies the backend type.
func (s *Store) Kind() string { return "simple" }

// Ingest stores the document and its chunks in one transaction. An existing
// document with the same id is replaced.
func (s *Store) Ingest(ctx context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("simple: marshal metadata for %s: %w", doc.ID, err)
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("simple: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE parent_document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("simple: clear chunks for %s: %w", doc.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, category, content, metadata, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			category = excluded.category,
			content = excluded.content,
			metadata = excluded.metadata,
			chunk_count = excluded.chunk_count`,
		doc.ID, doc.Filename, doc.Category, doc.Content, string(meta), len(doc.Chunks), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("simple: insert document %s: %w", doc.ID, err)
	}
	for i, text := range doc.Chunks {
		_, err = tx.ExecContext(ctx, `INSERT INTO chunks (id, parent_document_id, chunk_index, content) VALUES (?, ?, ?, ?)`,
			chunk.ChunkID(doc.ID, i), doc.ID, i, text)
		if err != nil {
			return fmt.Errorf("simple: insert chunk %d of %s: %w", i, doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("simple: commit %s: %w", doc.ID, err)
	}
	return nil
}

// Search scores documents by token overlap with the query. A document whose
// content contains the whole query as a substring scores at least 0.95, so
// exact phrases outrank loose token matches.
func (s *Store) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, filename, category, content, metadata FROM documents`
	args := []any{}
	if q.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, q.Category)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("simple: search query: %w", err)
	}
	defer rows.Close()

	queryTokens := tokenize(q.Text)
	queryLower := strings.ToLower(strings.TrimSpace(q.Text))

	var results []domain.SearchResult
	for rows.Next() {
		var id, filename, category, content, metaJSON string
		if err := rows.Scan(&id, &filename, &category, &content, &metaJSON); err != nil {
			return nil, fmt.Errorf("simple: scan row: %w", err)
		}

		score := overlapScore(queryTokens, content)
		if queryLower != "" && strings.Contains(strings.ToLower(content), queryLower) {
			if score < 0.95 {
				score = 0.95
			}
		}
		if score < q.MinRelevance || score == 0 {
			continue
		}

		meta := map[string]string{"category": category}
		var raw map[string]any
		if json.Unmarshal([]byte(metaJSON), &raw) == nil {
			for k, v := range raw {
				meta[k] = fmt.Sprint(v)
			}
		}
		results = append(results, domain.SearchResult{
			Content:    content,
			Filename:   filename,
			DocumentID: id,
			Relevance:  score,
			Metadata:   meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("simple: iterate rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AllDocuments returns all documents, newest first.
func (s *Store) AllDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, category, content, metadata, created_at
		FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("simple: list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var metaJSON string
		var createdAt int64
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Category, &doc.Content, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("simple: scan document: %w", err)
		}
		doc.CreatedAt = time.Unix(createdAt, 0)
		json.Unmarshal([]byte(metaJSON), &doc.Metadata)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document and its chunks. Returns false for unknown ids.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("simple: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("simple: delete %s: %w", id, err)
	}
	return n > 0, nil
}

// Update patches content and/or metadata, keeping the same id. A content
// change rechunks the document and replaces its chunk rows in the same
// transaction so chunks always mirror the current content. Returns false for
// unknown ids.
func (s *Store) Update(ctx context.Context, id string, upd domain.DocumentUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content, metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT content, metadata FROM documents WHERE id = ?`, id).
		Scan(&content, &metaJSON)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("simple: load %s: %w", id, err)
	}

	if upd.Content != nil {
		content = *upd.Content
	}
	meta := map[string]any{}
	json.Unmarshal([]byte(metaJSON), &meta)
	for k, v := range upd.Metadata {
		meta[k] = v
	}
	merged, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("simple: marshal metadata for %s: %w", id, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("simple: begin tx: %w", err)
	}
	defer tx.Rollback()

	if upd.Content != nil {
		chunks, err := chunk.Split(content, chunk.DefaultSize, chunk.DefaultOverlap)
		if err != nil {
			return false, fmt.Errorf("simple: rechunk %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE parent_document_id = ?`, id); err != nil {
			return false, fmt.Errorf("simple: clear chunks for %s: %w", id, err)
		}
		for i, text := range chunks {
			_, err = tx.ExecContext(ctx, `INSERT INTO chunks (id, parent_document_id, chunk_index, content) VALUES (?, ?, ?, ?)`,
				chunk.ChunkID(id, i), id, i, text)
			if err != nil {
				return false, fmt.Errorf("simple: insert chunk %d of %s: %w", i, id, err)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE documents SET content = ?, metadata = ?, chunk_count = ? WHERE id = ?`,
			content, string(merged), len(chunks), id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE documents SET metadata = ? WHERE id = ?`, string(merged), id)
	}
	if err != nil {
		return false, fmt.Errorf("simple: update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("simple: commit update %s: %w", id, err)
	}
	return true, nil
}

// Stats reports document count and the set of categories.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return domain.StoreStats{}, fmt.Errorf("simple: count documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM documents WHERE category != '' ORDER BY category`)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("simple: list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return domain.StoreStats{}, fmt.Errorf("simple: scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return domain.StoreStats{
		TotalDocuments: total,
		Categories:     categories,
		Backend:        s.Kind(),
	}, rows.Err()
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// overlapScore is the fraction of query tokens present in the content.
func overlapScore(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := map[string]bool{}
	for _, t := range tokenize(content) {
		contentTokens[t] = true
	}
	matched := 0
	for _, t := range queryTokens {
		if contentTokens[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
