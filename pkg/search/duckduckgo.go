package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/httpclient"
)

const (
	duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

	// DuckDuckGo serves the HTML interface to browsers only.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// Result pages are small; anything past this is not a result list.
	maxSearchBodyBytes = 1 << 20
)

// DuckDuckGo scrapes the html.duckduckgo.com interface. No API key needed.
type DuckDuckGo struct {
	endpoint   string
	httpClient *httpclient.Client
}

// NewDuckDuckGo builds the scraping backend.
func NewDuckDuckGo(cfg *config.SearchConfig) *DuckDuckGo {
	return &DuckDuckGo{
		endpoint: duckduckgoEndpoint,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
			httpclient.WithMaxRetries(2),
		),
	}
}

// Name identifies the backend.
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search scrapes one result page and returns up to max hits.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]Hit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: duckduckgo returned HTTP %d", ErrBackendUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading results: %v", ErrBackendUnavailable, err)
	}

	hits, err := parseDuckDuckGoResults(string(body), max)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return hits, nil
}

// parseDuckDuckGoResults walks the result page. Each organic result is a div
// whose class carries both "result" and "results_links"; within it the
// result__a anchor holds URL and title and result__snippet holds the snippet.
func parseDuckDuckGoResults(page string, max int) ([]Hit, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %v", err)
	}

	var hits []Hit
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(hits) >= max {
			return
		}

		if n.Type == html.ElementNode && n.Data == "div" {
			class := attrValue(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				hit := extractHit(n)
				if hit.URL != "" && hit.Title != "" && !seen[hit.URL] {
					seen[hit.URL] = true
					hits = append(hits, hit)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return hits, nil
}

func extractHit(root *html.Node) Hit {
	var hit Hit

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attrValue(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				hit.URL = decodeRedirect(attrValue(n, "href"))
				hit.Title = textContent(n)
			case strings.Contains(class, "result__snippet"):
				hit.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return hit
}

// decodeRedirect unwraps DuckDuckGo's /l/?uddg= redirect to the target URL.
func decodeRedirect(href string) string {
	if href == "" {
		return ""
	}

	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if parsed.Path != "/l/" {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
