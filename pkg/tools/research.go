package tools

import (
	"context"
	"errors"

	"github.com/kadirpekel/scout/pkg/research"
	"github.com/kadirpekel/scout/pkg/search"
)

// DeepResearchTool runs the iterative multi-round search strategy. It is
// registered only when the invocation asked for deep research, so a plain
// question never pays for multiple rounds.
type DeepResearchTool struct {
	engine *research.Engine
	rounds int
}

type deepResearchArgs struct {
	Query  string `json:"query" jsonschema:"required,description=The research question"`
	Rounds int    `json:"rounds,omitempty" jsonschema:"description=Number of search rounds to run"`
}

// NewDeepResearchTool wraps engine. rounds is the default round count when
// the model does not pass its own.
func NewDeepResearchTool(engine *research.Engine, rounds int) *DeepResearchTool {
	return &DeepResearchTool{engine: engine, rounds: rounds}
}

func (t *DeepResearchTool) Name() string { return "deep_research" }

func (t *DeepResearchTool) Description() string {
	return "Research a question across multiple refined web search rounds and return the merged, deduplicated results. Use for broad or multi-faceted questions a single search cannot cover."
}

func (t *DeepResearchTool) Schema() map[string]interface{} {
	return schemaFor(&deepResearchArgs{})
}

func (t *DeepResearchTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params deepResearchArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.Query == "" {
		return failure(FailureInvalidArguments, "query is required"), nil
	}

	rounds := params.Rounds
	if rounds <= 0 {
		rounds = t.rounds
	}

	report, err := t.engine.DeepResearch(ctx, params.Query, rounds)
	if err != nil {
		if errors.Is(err, search.ErrBackendUnavailable) {
			return failure(FailureSearchUnavailable, "search backend unavailable: %v", err), nil
		}
		return failure(FailureToolError, "deep research failed: %v", err), nil
	}
	return jsonPayload(report), nil
}

// DeepDiveTool runs the breadth-first crawl strategy, registered only in
// deep dive mode.
type DeepDiveTool struct {
	engine *research.Engine
	depth  int
}

type deepDiveArgs struct {
	URL   string `json:"url" jsonschema:"required,description=The seed URL to start crawling from"`
	Depth int    `json:"depth,omitempty" jsonschema:"description=How many link levels deep to crawl"`
}

// NewDeepDiveTool wraps engine. depth is the default crawl depth when the
// model does not pass its own.
func NewDeepDiveTool(engine *research.Engine, depth int) *DeepDiveTool {
	return &DeepDiveTool{engine: engine, depth: depth}
}

func (t *DeepDiveTool) Name() string { return "deep_dive" }

func (t *DeepDiveTool) Description() string {
	return "Crawl a page and the pages it links to, breadth-first up to a depth limit, and return the combined readable text. Use to exhaustively cover one site or document tree."
}

func (t *DeepDiveTool) Schema() map[string]interface{} {
	return schemaFor(&deepDiveArgs{})
}

func (t *DeepDiveTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params deepDiveArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.URL == "" {
		return failure(FailureInvalidArguments, "url is required"), nil
	}

	depth := params.Depth
	if depth <= 0 {
		depth = t.depth
	}

	report, err := t.engine.DeepDive(ctx, params.URL, depth)
	if err != nil {
		return failure(FailureFetchFailed, "%v", err), nil
	}
	return jsonPayload(report), nil
}
