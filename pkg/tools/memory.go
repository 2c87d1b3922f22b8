package tools

import (
	"context"

	"github.com/kadirpekel/scout/pkg/research"
)

// SaveFindingTool writes one research note to the persistent findings
// memory so later sessions can recall it.
type SaveFindingTool struct {
	memory *research.Memory
}

type saveFindingArgs struct {
	Content   string `json:"content" jsonschema:"required,description=The finding to remember"`
	SourceURL string `json:"source_url,omitempty" jsonschema:"description=Where the finding came from"`
}

// NewSaveFindingTool wraps memory.
func NewSaveFindingTool(memory *research.Memory) *SaveFindingTool {
	return &SaveFindingTool{memory: memory}
}

func (t *SaveFindingTool) Name() string { return "save_finding" }

func (t *SaveFindingTool) Description() string {
	return "Save an important research finding to persistent memory, with its source URL. Saved findings survive across sessions and can be recalled with query_research_memory."
}

func (t *SaveFindingTool) Schema() map[string]interface{} {
	return schemaFor(&saveFindingArgs{})
}

func (t *SaveFindingTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params saveFindingArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.Content == "" {
		return failure(FailureInvalidArguments, "content is required"), nil
	}

	id, err := t.memory.SaveFinding(ctx, params.Content, params.SourceURL)
	if err != nil {
		return failure(FailureToolError, "failed to save finding: %v", err), nil
	}
	return jsonPayload(map[string]string{"id": id, "status": "saved"}), nil
}

// QueryMemoryTool recalls findings similar to a query from the persistent
// findings memory.
type QueryMemoryTool struct {
	memory *research.Memory
}

type queryMemoryArgs struct {
	Query string `json:"query" jsonschema:"required,description=What to look up"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Maximum findings to return"`
}

// NewQueryMemoryTool wraps memory.
func NewQueryMemoryTool(memory *research.Memory) *QueryMemoryTool {
	return &QueryMemoryTool{memory: memory}
}

func (t *QueryMemoryTool) Name() string { return "query_research_memory" }

func (t *QueryMemoryTool) Description() string {
	return "Search previously saved research findings by semantic similarity. Check here before re-researching a topic."
}

func (t *QueryMemoryTool) Schema() map[string]interface{} {
	return schemaFor(&queryMemoryArgs{})
}

func (t *QueryMemoryTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params queryMemoryArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.Query == "" {
		return failure(FailureInvalidArguments, "query is required"), nil
	}

	findings, err := t.memory.Query(ctx, params.Query, params.TopK)
	if err != nil {
		return failure(FailureToolError, "failed to query research memory: %v", err), nil
	}
	if len(findings) == 0 {
		return success(`{"findings": []}`), nil
	}
	return jsonPayload(map[string]interface{}{"findings": findings}), nil
}
