package tools

import (
	"context"
	"errors"

	"github.com/kadirpekel/scout/pkg/research"
	"github.com/kadirpekel/scout/pkg/search"
)

// WebSearchTool runs a single web search through the research engine, so
// results share the cache with every other search in the process.
type WebSearchTool struct {
	engine     *research.Engine
	maxResults int
}

type webSearchArgs struct {
	Query      string `json:"query" jsonschema:"required,description=The search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results to return"`
}

type webSearchPayload struct {
	Query  string       `json:"query"`
	Hits   []search.Hit `json:"hits"`
	Cached bool         `json:"cached"`
}

// NewWebSearchTool wraps engine. maxResults caps the hits per search when
// the model does not ask for a count itself.
func NewWebSearchTool(engine *research.Engine, maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearchTool{engine: engine, maxResults: maxResults}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web and return ranked results with title, URL and snippet. Use for current events, facts you are unsure about, or anything after your knowledge cutoff."
}

func (t *WebSearchTool) Schema() map[string]interface{} {
	return schemaFor(&webSearchArgs{})
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params webSearchArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.Query == "" {
		return failure(FailureInvalidArguments, "query is required"), nil
	}
	max := params.MaxResults
	if max <= 0 {
		max = t.maxResults
	}

	hits, cached, err := t.engine.Search(ctx, params.Query, max)
	if err != nil {
		if errors.Is(err, search.ErrBackendUnavailable) {
			return failure(FailureSearchUnavailable, "search backend unavailable: %v", err), nil
		}
		return failure(FailureToolError, "search failed: %v", err), nil
	}

	return jsonPayload(webSearchPayload{Query: params.Query, Hits: hits, Cached: cached}), nil
}
