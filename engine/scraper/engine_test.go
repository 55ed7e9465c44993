package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

func testEngine() *Engine {
	return New(nil, nil, slog.Default())
}

const articlePage = `<html>
<head><title>Page Title From Head</title></head>
<body>
<nav>Home | About | Contact | Sitemap | Login | Register links here</nav>
<main>
<h1>Employment Rights Overview</h1>
<p>Employees in Ireland are entitled to a written statement of their core terms
within five days of starting work. The statement must include pay, hours, and
the employer's legal name.</p>
<p>Disputes are referred to the Workplace Relations Commission in the first
instance, with appeals to the Labour Court.</p>
</main>
<footer>Copyright notice and a long list of footer links goes here</footer>
</body></html>`

func TestScrape_ExtractsMainContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	doc, err := testEngine().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.RealScrape() {
		t.Fatalf("expected real scrape, got metadata %v", doc.Metadata)
	}
	if doc.Title != "Employment Rights Overview" {
		t.Fatalf("Title = %q", doc.Title)
	}
	if !strings.Contains(doc.Content, "Workplace Relations Commission") {
		t.Fatalf("main content missing: %q", doc.Content)
	}
	if strings.Contains(doc.Content, "Sitemap") {
		t.Fatal("nav content must be excluded")
	}
	if strings.Contains(doc.Content, "Copyright notice") {
		t.Fatal("footer content must be excluded")
	}
}

func TestScrape_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	if _, err := testEngine().Scrape(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotUA, "Chrome") {
		t.Fatalf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Fatalf("Accept = %q", gotAccept)
	}
}

func TestScrape_TitleFallsBackToHeadTitle(t *testing.T) {
	page := `<html><head><title>Only Head Title</title></head><body><main>
<p>Some sufficiently long paragraph of content that passes the minimum length
check for a successful extraction without any h1 heading present.</p>
</main></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	doc, err := testEngine().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Only Head Title" {
		t.Fatalf("Title = %q", doc.Title)
	}
}

func TestScrape_ShortContentYieldsDemo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><main><p>too short</p></main></body></html>`))
	}))
	defer srv.Close()

	doc, err := testEngine().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RealScrape() {
		t.Fatal("thin page must yield a demo document")
	}
	if !strings.HasPrefix(doc.Title, "DEMO: Document from ") {
		t.Fatalf("Title = %q", doc.Title)
	}
	if doc.Category != "demo" {
		t.Fatalf("Category = %q", doc.Category)
	}
	if doc.Metadata["status"] != "demo" {
		t.Fatalf("status = %v", doc.Metadata["status"])
	}
}

func TestScrape_ServerErrorYieldsDemo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	doc, err := testEngine().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RealScrape() {
		t.Fatal("5xx must yield a demo document")
	}
}

func TestScrape_UnreachableHostYieldsDemo(t *testing.T) {
	doc, err := testEngine().Scrape(context.Background(), "http://127.0.0.1:1/nothing")
	if err != nil {
		t.Fatal(err)
	}
	if doc.RealScrape() {
		t.Fatal("unreachable host must yield a demo document")
	}
	if doc.URL != "http://127.0.0.1:1/nothing" {
		t.Fatalf("URL = %q", doc.URL)
	}
}

func TestScrape_EmptyURL(t *testing.T) {
	_, err := testEngine().Scrape(context.Background(), "  ")
	if !errors.Is(err, domain.ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	in := "  A   line    with   extra   spaces that is long enough to keep\n" +
		"short\n" +
		"ok........done and this line is long enough to survive the filter\n" +
		"--------- and this dashed line is also long enough to be kept here\n"
	out := cleanText(in)

	if strings.Contains(out, "  ") {
		t.Fatal("whitespace not collapsed")
	}
	if strings.Contains(out, "short") {
		t.Fatal("short lines must be dropped")
	}
	if strings.Contains(out, "....") {
		t.Fatal("dot runs must be squeezed")
	}
	if strings.Contains(out, "----") {
		t.Fatal("dash runs must be squeezed")
	}
}

func TestCleanText_Truncates(t *testing.T) {
	out := cleanText(strings.Repeat("All work and no play makes a dull page. ", 1000))
	if len([]rune(out)) > MaxContentLength+100 {
		t.Fatalf("content not capped: %d chars", len([]rune(out)))
	}
	if !strings.Contains(out, "[Content truncated...]") {
		t.Fatal("truncation marker missing")
	}
}

func TestCleanText_CyrillicUnderCapKeptWhole(t *testing.T) {
	// over 10000 bytes but under 10000 runes: must stay untouched
	in := strings.Repeat("Стаття про права працівників та умови їх праці. ", 150)
	out := cleanText(in)
	if strings.Contains(out, "[Content truncated...]") {
		t.Fatal("text under the rune cap must not carry a truncation marker")
	}
	if out != strings.TrimSpace(in) {
		t.Fatal("text under the rune cap must pass through unchanged")
	}
}

func TestCleanText_CyrillicOverCapTruncatesAtRunes(t *testing.T) {
	in := strings.Repeat("Закон України про судоустрій і статус суддів. ", 400)
	out := cleanText(in)
	if !strings.Contains(out, "[Content truncated...]") {
		t.Fatal("truncation marker missing")
	}
	body := strings.TrimSuffix(out, "\n\n[Content truncated...]")
	if got := len([]rune(body)); got != MaxContentLength {
		t.Fatalf("kept %d runes, want %d", got, MaxContentLength)
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"zakon.rada.gov.ua":      "legislation",
		"court.gov.ua":           "jurisprudence",
		"courts.ie":              "jurisprudence",
		"citizensinformation.ie": "civil_rights",
		"revenue.gov.ie":         "government",
		"example.ua":             "ukraine_legal",
		"example.ie":             "ireland_legal",
		"example.com":            "scraped",
	}
	for host, want := range cases {
		if got := categorize(host); got != want {
			t.Errorf("categorize(%q) = %q, want %q", host, got, want)
		}
	}
}
