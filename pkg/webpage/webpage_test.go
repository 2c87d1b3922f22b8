package webpage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kadirpekel/scout/pkg/config"
)

func testFetcher() *Fetcher {
	return NewFetcher(&config.SearchConfig{Timeout: config.Duration(5 * time.Second)})
}

func TestFetcher_Fetch_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "scout") {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body>
			<h1>Getting Started</h1>
			<p>Read the <a href="/guide">guide</a> first.</p>
		</body></html>`))
	}))
	defer server.Close()

	doc, err := testFetcher().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if doc.Title != "Docs" {
		t.Errorf("Title = %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Getting Started") {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.ContentType != "text/html" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if len(doc.Links) != 1 || doc.Links[0].URL != server.URL+"/guide" {
		t.Errorf("Links = %+v, want resolved /guide", doc.Links)
	}
}

func TestFetcher_Fetch_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("RFC-style plain text document\nline two"))
	}))
	defer server.Close()

	doc, err := testFetcher().Fetch(context.Background(), server.URL+"/spec.txt")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if doc.Text != "RFC-style plain text document\nline two" {
		t.Errorf("Text = %q, want passthrough", doc.Text)
	}
	if doc.Title != "spec.txt" {
		t.Errorf("Title = %q, want URL basename", doc.Title)
	}
	if len(doc.Links) != 0 {
		t.Errorf("Links = %+v, want none for plain text", doc.Links)
	}
}

func TestFetcher_Fetch_FollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<title>Moved</title><p>here now</p>`))
	}))
	defer target.Close()

	doc, err := testFetcher().Fetch(context.Background(), target.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if doc.URL != target.URL+"/old" {
		t.Errorf("URL = %q", doc.URL)
	}
	if doc.FinalURL != target.URL+"/new" {
		t.Errorf("FinalURL = %q, want redirect target", doc.FinalURL)
	}
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(context.Background(), server.URL)

	var fetchErr *FetchFailedError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %v, want FetchFailedError", err)
	}
	if !strings.Contains(fetchErr.Reason, "404") {
		t.Errorf("Reason = %q, want HTTP status", fetchErr.Reason)
	}
}

func TestFetcher_Fetch_UnsupportedContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	}))
	defer server.Close()

	_, err := testFetcher().Fetch(context.Background(), server.URL)

	var fetchErr *FetchFailedError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %v, want FetchFailedError", err)
	}
	if !strings.Contains(fetchErr.Reason, "unsupported content type") {
		t.Errorf("Reason = %q", fetchErr.Reason)
	}
}

func TestFetcher_Fetch_InvalidURL(t *testing.T) {
	tests := []string{"", "not-a-url", "://missing"}
	for _, raw := range tests {
		_, err := testFetcher().Fetch(context.Background(), raw)
		var fetchErr *FetchFailedError
		if !errors.As(err, &fetchErr) {
			t.Errorf("Fetch(%q) error = %v, want FetchFailedError", raw, err)
		}
	}
}

func TestFetcher_Fetch_Spreadsheet(t *testing.T) {
	book := excelize.NewFile()
	if err := book.SetCellValue("Sheet1", "A1", "Region"); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	if err := book.SetCellValue("Sheet1", "B1", "Revenue"); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	if err := book.SetCellValue("Sheet1", "A2", "EMEA"); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	if err := book.SetCellValue("Sheet1", "B2", 1234); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", xlsxMediaType)
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	doc, err := testFetcher().Fetch(context.Background(), server.URL+"/report.xlsx")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	for _, want := range []string{"Sheet1", "Region | Revenue", "EMEA | 1234"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("Text missing %q:\n%s", want, doc.Text)
		}
	}
	if doc.Title != "report.xlsx" {
		t.Errorf("Title = %q", doc.Title)
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`https://example.com/a\?b=1`, "https://example.com/a?b=1"},
		{"  https://example.com  ", "https://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := sanitizeURL(tt.in); got != tt.want {
			t.Errorf("sanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/docs/report.pdf", "report.pdf"},
		{"https://example.com/", "example.com"},
		{"https://example.com", "example.com"},
	}
	for _, tt := range tests {
		if got := titleFromURL(tt.in); got != tt.want {
			t.Errorf("titleFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\n\n# Welcome Page\nbody", "fallback"); got != "Welcome Page" {
		t.Errorf("firstLine() = %q", got)
	}
	if got := firstLine("", "fallback"); got != "fallback" {
		t.Errorf("firstLine() = %q, want fallback", got)
	}
	long := strings.Repeat("a", 300)
	if got := firstLine(long, "fallback"); len(got) != 200 {
		t.Errorf("firstLine() length = %d, want 200", len(got))
	}
}
