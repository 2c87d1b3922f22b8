// Package webpage fetches URLs and turns them into readable text. HTML goes
// through the link-aware extractor; PDF and Office documents go through
// native parsers; other text content passes through unchanged.
package webpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/httpclient"
)

const (
	fetchUserAgent = "Mozilla/5.0 (compatible; scout/1.0; +https://github.com/kadirpekel/scout)"

	// Fetched bodies are capped so a runaway download cannot exhaust
	// memory; PDFs need more headroom than HTML.
	maxFetchBytes = 8 << 20
)

// Document is a fetched and text-extracted resource.
type Document struct {
	// URL is the requested URL; FinalURL the one that served the content
	// after redirects.
	URL         string
	FinalURL    string
	Title       string
	Text        string
	Links       []Link
	ContentType string
}

// FetchFailedError covers network failures, timeouts, HTTP error statuses
// and unsupported content types. It is handed back to the model as a tool
// failure rather than aborting the conversation.
type FetchFailedError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FetchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: %s", e.URL, e.Reason)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves pages with a shared retrying client.
type Fetcher struct {
	httpClient *httpclient.Client
}

// NewFetcher builds a fetcher honoring the search section's timeout.
func NewFetcher(cfg *config.SearchConfig) *Fetcher {
	return &Fetcher{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
			httpclient.WithMaxRetries(2),
		),
	}
}

// Fetch retrieves rawURL and extracts its text and links according to the
// served content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	rawURL = sanitizeURL(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &FetchFailedError{URL: rawURL, Reason: "invalid URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, &FetchFailedError{URL: rawURL, Reason: "building request", Err: err}
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	// The retrying client can return both a response and an error for
	// non-2xx statuses, so inspect the status before the error.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &FetchFailedError{URL: rawURL, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
	}
	if err != nil {
		return nil, &FetchFailedError{URL: rawURL, Reason: "request failed", Err: err}
	}
	if resp == nil {
		return nil, &FetchFailedError{URL: rawURL, Reason: "request failed", Err: errors.New("no response received")}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, &FetchFailedError{URL: rawURL, Reason: "reading body", Err: err}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	doc := &Document{
		URL:         rawURL,
		FinalURL:    finalURL,
		ContentType: mediaType,
	}

	switch {
	case isHTMLType(mediaType, body):
		base := resp.Request.URL
		page, err := Extract(base, strings.NewReader(string(body)))
		if err != nil {
			return nil, &FetchFailedError{URL: rawURL, Reason: "extracting HTML", Err: err}
		}
		doc.Title = page.Title
		doc.Text = page.Text
		doc.Links = page.Links

	case mediaType == "application/pdf":
		text, err := extractPDF(body)
		if err != nil {
			return nil, &FetchFailedError{URL: rawURL, Reason: "parsing PDF", Err: err}
		}
		doc.Title = titleFromURL(finalURL)
		doc.Text = text

	case mediaType == docxMediaType || hasExtension(finalURL, ".docx"):
		text, err := extractDocx(body)
		if err != nil {
			return nil, &FetchFailedError{URL: rawURL, Reason: "parsing Word document", Err: err}
		}
		doc.Title = titleFromURL(finalURL)
		doc.Text = text

	case mediaType == xlsxMediaType || hasExtension(finalURL, ".xlsx"):
		text, err := extractXlsx(body)
		if err != nil {
			return nil, &FetchFailedError{URL: rawURL, Reason: "parsing spreadsheet", Err: err}
		}
		doc.Title = titleFromURL(finalURL)
		doc.Text = text

	case strings.HasPrefix(mediaType, "text/") || mediaType == "application/json" || mediaType == "application/xml":
		doc.Title = titleFromURL(finalURL)
		doc.Text = string(body)

	default:
		return nil, &FetchFailedError{URL: rawURL, Reason: fmt.Sprintf("unsupported content type %q", mediaType)}
	}

	if doc.Title == "" {
		doc.Title = firstLine(doc.Text, finalURL)
	}

	return doc, nil
}

// sanitizeURL removes escaping artifacts models sometimes emit in URLs.
func sanitizeURL(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, `\`, ""))
}

// isHTMLType treats declared HTML types as HTML, and sniffs bodies served
// without a content type.
func isHTMLType(mediaType string, body []byte) bool {
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return true
	}
	if mediaType == "" {
		return strings.HasPrefix(http.DetectContentType(body), "text/html")
	}
	return false
}

func hasExtension(rawURL, ext string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(parsed.Path), ext)
}

func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
		return base
	}
	return parsed.Host
}

// firstLine mirrors the title fallback used for pages without a <title>:
// the first non-empty line of content, bounded, or the fallback.
func firstLine(text, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "# ")
		if line == "" {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}
		return line
	}
	return fallback
}
