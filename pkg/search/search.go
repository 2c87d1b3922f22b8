// Package search provides web search backends behind a small Provider
// interface. Two backends are implemented: DuckDuckGo HTML scraping (no API
// key) and the Brave Search API.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kadirpekel/scout/pkg/config"
)

// ErrBackendUnavailable marks transport failures and undecodable responses
// from a search backend. An empty result list is data, not an error.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// Hit is a single search result. Slice order is the backend's ranking.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Provider is a web search backend.
type Provider interface {
	// Search returns up to max ranked hits for query, deduplicated by URL.
	Search(ctx context.Context, query string, max int) ([]Hit, error)

	// Name identifies the backend in logs and cache keys.
	Name() string
}

// New builds the configured search provider.
func New(cfg *config.SearchConfig) (Provider, error) {
	switch cfg.Provider {
	case config.SearchProviderDuckDuckGo, "":
		return NewDuckDuckGo(cfg), nil
	case config.SearchProviderBrave:
		return NewBrave(cfg)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}

// Normalize canonicalizes a query for cache keys: lowercased with runs of
// whitespace collapsed to single spaces.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
