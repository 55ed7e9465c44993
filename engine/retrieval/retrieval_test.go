package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

type fakeStore struct {
	kind      string
	results   []domain.SearchResult
	searchErr error
	stats     domain.StoreStats
	lastQuery domain.SearchQuery
}

func (f *fakeStore) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	f.lastQuery = q
	return f.results, f.searchErr
}

func (f *fakeStore) Stats(context.Context) (domain.StoreStats, error) {
	return f.stats, nil
}

func (f *fakeStore) Kind() string { return f.kind }

func TestRetrieve_AppliesDefaults(t *testing.T) {
	fs := &fakeStore{kind: "semantic"}
	svc := New(fs, slog.Default())

	_, err := svc.Retrieve(context.Background(), "query", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if fs.lastQuery.Limit != DefaultLimit {
		t.Fatalf("Limit = %d", fs.lastQuery.Limit)
	}
	if fs.lastQuery.MinRelevance != DefaultMinRelevance {
		t.Fatalf("MinRelevance = %v", fs.lastQuery.MinRelevance)
	}
}

func TestRetrieve_NegativeMinRelevanceMeansNoFloor(t *testing.T) {
	fs := &fakeStore{kind: "simple", results: []domain.SearchResult{{Content: "x", Relevance: 0.01}}}
	svc := New(fs, slog.Default())

	resp, err := svc.Retrieve(context.Background(), "query", Options{MinRelevance: -1})
	if err != nil {
		t.Fatal(err)
	}
	if fs.lastQuery.MinRelevance != 0 {
		t.Fatalf("MinRelevance = %v, want 0 for an explicit no-floor request", fs.lastQuery.MinRelevance)
	}
	if len(resp.Results) != 1 {
		t.Fatal("low-relevance hit must survive with no floor")
	}
}

func TestRetrieve_EmptyStoreVsNoMatch(t *testing.T) {
	empty := &fakeStore{kind: "simple", stats: domain.StoreStats{TotalDocuments: 0}}
	resp, err := New(empty, slog.Default()).Retrieve(context.Background(), "q", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.StoreEmpty {
		t.Fatal("expected StoreEmpty for a store with no documents")
	}

	populated := &fakeStore{kind: "simple", stats: domain.StoreStats{TotalDocuments: 7}}
	resp, err = New(populated, slog.Default()).Retrieve(context.Background(), "q", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StoreEmpty {
		t.Fatal("populated store must not report StoreEmpty")
	}
	if len(resp.Results) != 0 {
		t.Fatal("expected no results")
	}
}

func TestRetrieve_ClassifiesMatches(t *testing.T) {
	fs := &fakeStore{
		kind: "semantic",
		results: []domain.SearchResult{
			{Content: "The Minimum Wage Act sets the rate.", Relevance: 0.9},
			{Content: "Pay rates are set by statute.", Relevance: 0.6},
		},
	}
	resp, err := New(fs, slog.Default()).Retrieve(context.Background(), "minimum wage act", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].MatchType != domain.MatchExact {
		t.Fatalf("first match type = %q", resp.Results[0].MatchType)
	}
	if resp.Results[1].MatchType != domain.MatchSemantic {
		t.Fatalf("second match type = %q", resp.Results[1].MatchType)
	}
}

func TestRetrieve_KeywordBackendYieldsPartial(t *testing.T) {
	fs := &fakeStore{
		kind:    "simple",
		results: []domain.SearchResult{{Content: "Pay rates are set by statute.", Relevance: 0.5}},
	}
	resp, err := New(fs, slog.Default()).Retrieve(context.Background(), "minimum wage", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].MatchType != domain.MatchPartial {
		t.Fatalf("match type = %q", resp.Results[0].MatchType)
	}
}

func TestRetrieve_PreservesBackendOrder(t *testing.T) {
	fs := &fakeStore{
		kind: "semantic",
		results: []domain.SearchResult{
			{DocumentID: "low", Relevance: 0.4},
			{DocumentID: "high", Relevance: 0.9},
		},
	}
	resp, err := New(fs, slog.Default()).Retrieve(context.Background(), "q", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].DocumentID != "low" || resp.Results[1].DocumentID != "high" {
		t.Fatal("retrieval must not reorder backend results")
	}
}

func TestRetrieve_SurfacesStoreError(t *testing.T) {
	boom := errors.New("backend down")
	fs := &fakeStore{kind: "simple", searchErr: boom}
	_, err := New(fs, slog.Default()).Retrieve(context.Background(), "q", Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}
