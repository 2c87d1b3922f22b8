package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/httpclient"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount is the largest page size the web search API accepts.
const braveMaxCount = 20

// Brave queries the Brave Search API. Requires a subscription token; the
// free tier allows one request per second, which the retrying client paces
// via the X-RateLimit-* headers.
type Brave struct {
	endpoint   string
	apiKey     string
	httpClient *httpclient.Client
}

// NewBrave builds the Brave backend.
func NewBrave(cfg *config.SearchConfig) (*Brave, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("brave search requires an API key")
	}
	return &Brave{
		endpoint: braveEndpoint,
		apiKey:   cfg.APIKey,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
			httpclient.WithHeaderParser(httpclient.ParseBraveHeaders),
		),
	}, nil
}

// Name identifies the backend.
func (b *Brave) Name() string {
	return "brave"
}

// Search performs one API query and returns up to max hits.
func (b *Brave) Search(ctx context.Context, query string, max int) ([]Hit, error) {
	count := max
	if count > braveMaxCount {
		count = braveMaxCount
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: brave returned HTTP %d", ErrBackendUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading results: %v", ErrBackendUnavailable, err)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrBackendUnavailable, err)
	}

	hits := make([]Hit, 0, len(payload.Web.Results))
	seen := make(map[string]bool)
	for _, r := range payload.Web.Results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(hits) >= max {
			break
		}
	}

	return hits, nil
}
