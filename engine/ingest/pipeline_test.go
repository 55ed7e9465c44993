package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

type fakeStore struct {
	docs []domain.Document
	err  error
}

func (f *fakeStore) Ingest(_ context.Context, doc domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func TestPipeline_StoresChunkedDocument(t *testing.T) {
	fs := &fakeStore{}
	pipeline := NewPipeline(Deps{Store: fs})

	content := strings.Repeat("A legal paragraph about tenancy obligations. ", 60)
	result := pipeline(context.Background(), Input{
		Filename: "tenancy.txt",
		Content:  content,
		Category: "civil_rights",
	})
	docID, err := result.Unwrap()
	if err != nil {
		t.Fatal(err)
	}

	if len(fs.docs) != 1 {
		t.Fatalf("stored %d docs", len(fs.docs))
	}
	doc := fs.docs[0]
	if doc.ID != docID {
		t.Fatalf("returned id %q, stored id %q", docID, doc.ID)
	}
	if !strings.HasPrefix(doc.ID, "tenancy.txt_") {
		t.Fatalf("id = %q", doc.ID)
	}
	if len(doc.Chunks) < 2 {
		t.Fatalf("long content must chunk, got %d chunks", len(doc.Chunks))
	}
	if doc.Category != "civil_rights" {
		t.Fatalf("category = %q", doc.Category)
	}
}

func TestPipeline_RejectsShortContent(t *testing.T) {
	pipeline := NewPipeline(Deps{Store: &fakeStore{}})
	result := pipeline(context.Background(), Input{Filename: "x.txt", Content: "tiny"})
	if _, err := result.Unwrap(); !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestPipeline_RejectsMissingFilename(t *testing.T) {
	pipeline := NewPipeline(Deps{Store: &fakeStore{}})
	result := pipeline(context.Background(), Input{Content: "plenty of content here"})
	if result.IsOk() {
		t.Fatal("expected validation failure")
	}
}

func TestPipeline_SurfacesStoreError(t *testing.T) {
	boom := errors.New("store down")
	pipeline := NewPipeline(Deps{Store: &fakeStore{err: boom}})
	result := pipeline(context.Background(), Input{
		Filename: "a.txt",
		Content:  "content long enough to pass validation",
	})
	if _, err := result.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	fs := &fakeStore{}
	pipeline := NewPipeline(Deps{Store: fs})
	in := Input{Filename: "a.txt", Content: "identical content ingested twice"}

	r1 := pipeline(context.Background(), in)
	r2 := pipeline(context.Background(), in)
	id1, _ := r1.Unwrap()
	id2, _ := r2.Unwrap()
	if id1 != id2 {
		t.Fatalf("same input must yield same id: %q vs %q", id1, id2)
	}
}

func TestFromScraped(t *testing.T) {
	in := FromScraped(&domain.ScrapedDocument{
		URL:      "https://example.ie/page",
		Title:    "Example Page",
		Content:  "scraped page content",
		Category: "ireland_legal",
		Metadata: map[string]any{"real_scraping": true},
	})
	if in.Filename != "https://example.ie/page" {
		t.Fatalf("Filename = %q", in.Filename)
	}
	if in.Metadata["title"] != "Example Page" {
		t.Fatalf("title metadata = %v", in.Metadata["title"])
	}
	if in.Metadata["real_scraping"] != true {
		t.Fatal("scrape metadata must carry through")
	}
}

func TestFromBytes_UTF8(t *testing.T) {
	in, err := FromBytes("doc.txt", []byte("plain utf-8 content"), "general")
	if err != nil {
		t.Fatal(err)
	}
	if in.Content != "plain utf-8 content" {
		t.Fatalf("Content = %q", in.Content)
	}
}

func TestFromBytes_Windows1251Fallback(t *testing.T) {
	// "Закон" in Windows-1251
	raw := []byte{0xC7, 0xE0, 0xEA, 0xEE, 0xED}
	in, err := FromBytes("zakon.txt", raw, "legislation")
	if err != nil {
		t.Fatal(err)
	}
	if in.Content != "Закон" {
		t.Fatalf("Content = %q", in.Content)
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("file content for ingestion"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := FromFile(path, "general")
	if err != nil {
		t.Fatal(err)
	}
	if in.Filename != "note.txt" {
		t.Fatalf("Filename = %q", in.Filename)
	}
	if in.Content != "file content for ingestion" {
		t.Fatalf("Content = %q", in.Content)
	}
}
