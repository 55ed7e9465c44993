package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sergey0703/aiassistant/engine/domain"
	"github.com/Sergey0703/aiassistant/engine/retrieval"
	"github.com/Sergey0703/aiassistant/engine/scraper"
	"github.com/Sergey0703/aiassistant/engine/store/simple"
)

func testAssistant(t *testing.T) *Assistant {
	t.Helper()
	st, err := simple.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	a := New(st, nil, nil, slog.Default())
	t.Cleanup(func() { a.Close() })
	return a
}

func TestIngestThenSearch(t *testing.T) {
	a := testAssistant(t)
	ctx := context.Background()

	id, err := a.IngestBytes(ctx, "wage.txt",
		[]byte("The national minimum wage in Ireland is reviewed each year by the Low Pay Commission."),
		"ireland_legal")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "wage.txt_") {
		t.Fatalf("id = %q", id)
	}

	resp, err := a.Search(ctx, "minimum wage", retrieval.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	if resp.Results[0].DocumentID != id {
		t.Fatalf("DocumentID = %q", resp.Results[0].DocumentID)
	}
	if resp.Results[0].MatchType != domain.MatchExact {
		t.Fatalf("MatchType = %q", resp.Results[0].MatchType)
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	a := testAssistant(t)
	resp, err := a.Search(context.Background(), "anything", retrieval.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.StoreEmpty {
		t.Fatal("expected StoreEmpty")
	}
}

func TestDocumentLifecycle(t *testing.T) {
	a := testAssistant(t)
	ctx := context.Background()

	id, err := a.IngestBytes(ctx, "doc.txt", []byte("original content for the lifecycle test"), "general")
	if err != nil {
		t.Fatal(err)
	}

	newContent := "revised content for the lifecycle test"
	ok, err := a.UpdateDocument(ctx, id, domain.DocumentUpdate{Content: &newContent})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	docs, err := a.Documents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Content != newContent {
		t.Fatalf("documents: %+v", docs)
	}

	ok, err = a.DeleteDocument(ctx, id)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 0 {
		t.Fatalf("TotalDocuments = %d after delete", stats.TotalDocuments)
	}
}

func TestIngestFile(t *testing.T) {
	a := testAssistant(t)
	path := filepath.Join(t.TempDir(), "act.txt")
	if err := os.WriteFile(path, []byte("An Act to make provision for employment rights."), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := a.IngestFile(context.Background(), path, "legislation")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "act.txt_") {
		t.Fatalf("id = %q", id)
	}
}

func TestScrapeAndIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><main><h1>Served Page</h1><p>Content of the page at %s,
long enough to pass the extraction threshold for real scrapes.</p></main></body></html>`, r.URL.Path)
	}))
	defer srv.Close()

	a := testAssistant(t)
	urls := []string{srv.URL + "/a", "http://127.0.0.1:1/down", srv.URL + "/b"}

	ids, err := a.ScrapeAndIngest(context.Background(), urls, scraper.BulkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids", len(ids))
	}
	for i, id := range ids {
		if id == "" {
			t.Fatalf("id %d empty", i)
		}
	}

	stats, err := a.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 3 {
		t.Fatalf("TotalDocuments = %d", stats.TotalDocuments)
	}
	// the unreachable URL must have been stored as a demo document
	found := false
	for _, c := range stats.Categories {
		if c == "demo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("demo category missing: %v", stats.Categories)
	}
}
