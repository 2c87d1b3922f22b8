// Package research implements the two LM-triggered research strategies:
// deep research (iterative multi-round web search with gap-driven query
// refinement) and deep dive (breadth-first, depth-bounded link crawling).
// Both run through a shared cache-backed search/fetch path.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/cache"
	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/llm"
	"github.com/kadirpekel/scout/pkg/search"
	"github.com/kadirpekel/scout/pkg/webpage"
)

const (
	// gapInstruction drives per-round query refinement. The model answers
	// with the next query or DONE.
	gapInstruction = `You are refining an ongoing web research session.
Given the original question and the search results collected so far, identify
the single largest information gap and reply with ONE focused follow-up web
search query that would fill it. Reply with only the query text, nothing else.
If the collected results already cover the question, reply with the single
word DONE.`

	maxGapInputChars = 12000
)

// Report is the outcome of a deep research run: merged, first-seen-order
// deduplicated hits plus the queries issued per round.
type Report struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
	Notes []string     `json:"notes,omitempty"`
}

// Options wires an Engine. Search and Fetcher are required; a nil Cache
// disables caching, a nil Summarizer stops deep research after its first
// round, a nil Memory disables the findings tools.
type Options struct {
	Search     search.Provider
	Fetcher    *webpage.Fetcher
	Cache      cache.Store
	Summarizer *llm.Summarizer
	Memory     *Memory
	Config     *config.ResearchConfig

	// MaxResults caps hits per search round.
	MaxResults int
	// CacheTTL is the expiry applied to cached search and page payloads.
	CacheTTL time.Duration
}

// Engine coordinates search, fetch, cache and synthesis for the research
// tools. One Engine serves one CLI invocation; the cache behind it is the
// only state shared across invocations.
type Engine struct {
	search     search.Provider
	fetcher    *webpage.Fetcher
	store      cache.Store
	summarizer *llm.Summarizer
	memory     *Memory
	cfg        *config.ResearchConfig
	maxResults int
	ttl        time.Duration
}

// New validates the wiring and returns a ready Engine.
func New(opts Options) (*Engine, error) {
	if opts.Search == nil {
		return nil, fmt.Errorf("search provider is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = &config.ResearchConfig{}
	}
	cfg.SetDefaults()

	store := opts.Cache
	if store == nil {
		store = cache.NewNoop()
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Engine{
		search:     opts.Search,
		fetcher:    opts.Fetcher,
		store:      store,
		summarizer: opts.Summarizer,
		memory:     opts.Memory,
		cfg:        cfg,
		maxResults: maxResults,
		ttl:        ttl,
	}, nil
}

// Memory exposes the findings store, nil when disabled.
func (e *Engine) Memory() *Memory {
	return e.memory
}

// Search runs a cache-backed web search. The bool reports whether the hits
// came from the cache. Cache trouble degrades to a plain search.
func (e *Engine) Search(ctx context.Context, query string, max int) ([]search.Hit, bool, error) {
	if max <= 0 {
		max = e.maxResults
	}

	key := cache.Key("search", fmt.Sprintf("%s|%d", search.Normalize(query), max))

	if payload, ok, err := e.store.Get(ctx, key); err != nil {
		slog.Debug("Cache read failed, searching directly", "error", err)
	} else if ok {
		var hits []search.Hit
		if err := json.Unmarshal(payload, &hits); err == nil {
			return hits, true, nil
		}
		slog.Debug("Discarding undecodable cached search payload", "key", key)
	}

	hits, err := e.search.Search(ctx, query, max)
	if err != nil {
		return nil, false, err
	}

	if payload, err := json.Marshal(hits); err == nil {
		if err := e.store.Put(ctx, key, payload, e.ttl); err != nil {
			slog.Debug("Cache write failed", "error", err)
		}
	}

	return hits, false, nil
}

// Fetch runs a cache-backed page fetch keyed by normalized URL. The bool
// reports whether the document came from the cache.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (*webpage.Document, bool, error) {
	normalized, err := webpage.NormalizeURL(rawURL)
	if err != nil {
		return nil, false, &webpage.FetchFailedError{URL: rawURL, Reason: "invalid URL", Err: err}
	}

	key := cache.Key("page", normalized)

	if payload, ok, err := e.store.Get(ctx, key); err != nil {
		slog.Debug("Cache read failed, fetching directly", "error", err)
	} else if ok {
		var doc webpage.Document
		if err := json.Unmarshal(payload, &doc); err == nil {
			return &doc, true, nil
		}
		slog.Debug("Discarding undecodable cached page payload", "key", key)
	}

	doc, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}

	if payload, err := json.Marshal(doc); err == nil {
		if err := e.store.Put(ctx, key, payload, e.ttl); err != nil {
			slog.Debug("Cache write failed", "error", err)
		}
	}

	return doc, false, nil
}

// DeepResearch issues up to rounds search rounds. Round one searches the
// original query; every later round searches a gap query derived from the
// accumulated hits. Hits merge into one first-seen-order list, deduplicated
// by URL, capped at maxResults per round times rounds.
func (e *Engine) DeepResearch(ctx context.Context, query string, rounds int) (*Report, error) {
	if rounds <= 0 {
		rounds = e.cfg.Rounds
	}

	report := &Report{Query: query}
	seen := make(map[string]bool)
	current := query

	for round := 1; round <= rounds; round++ {
		hits, cached, err := e.Search(ctx, current, e.maxResults)
		if err != nil {
			if round == 1 {
				return nil, err
			}
			slog.Warn("Search round failed, stopping early",
				"round", round, "query", current, "error", err)
			report.Notes = append(report.Notes,
				fmt.Sprintf("round %d: search for %q failed", round, current))
			break
		}

		slog.Debug("Search round complete",
			"round", round, "query", current, "hits", len(hits), "cached", cached)
		report.Notes = append(report.Notes,
			fmt.Sprintf("round %d: searched %q (%d hits)", round, current, len(hits)))

		for _, hit := range hits {
			key := dedupKey(hit.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			report.Hits = append(report.Hits, hit)
		}

		if round == rounds {
			break
		}

		next := e.nextQuery(ctx, query, report.Hits)
		if next == "" {
			report.Notes = append(report.Notes,
				fmt.Sprintf("round %d: results judged sufficient, stopping early", round))
			break
		}
		current = next
	}

	if limit := e.maxResults * rounds; len(report.Hits) > limit {
		report.Hits = report.Hits[:limit]
	}

	return report, nil
}

// nextQuery asks the summarizer for the next gap query. Empty means stop.
func (e *Engine) nextQuery(ctx context.Context, original string, hits []search.Hit) string {
	if e.summarizer == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original question: %s\n\nResults so far:\n", original)
	for _, hit := range hits {
		fmt.Fprintf(&b, "- %s (%s): %s\n", hit.Title, hit.URL, hit.Snippet)
		if b.Len() > maxGapInputChars {
			break
		}
	}

	reply, err := e.summarizer.Summarize(ctx, gapInstruction, b.String())
	if err != nil {
		slog.Warn("Gap analysis failed, stopping refinement", "error", err)
		return ""
	}

	next := strings.Trim(strings.TrimSpace(reply), `"`)
	if next == "" || strings.EqualFold(next, "DONE") {
		return ""
	}
	return next
}

// dedupKey normalizes a hit URL for merging; unparseable URLs dedup on the
// raw string.
func dedupKey(rawURL string) string {
	if normalized, err := webpage.NormalizeURL(rawURL); err == nil {
		return normalized
	}
	return rawURL
}
