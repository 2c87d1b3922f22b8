package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/scout/pkg/llm"
)

// Registry holds the tools available to the model and dispatches calls to
// them. Registration order is preserved so the definitions advertised to
// the model are stable across runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice replaces the tool without
// changing its position in the listing.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns the tool definitions advertised to the model, in
// registration order.
func (r *Registry) List() []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Execute dispatches one model-issued call and always returns a usable
// Result: unknown tools, bad arguments, tool errors and even a panic inside
// a tool become failure payloads the model can react to.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (result Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = failure(FailureToolError, "tool panicked: %v", rec)
		}
		result.ToolName = call.Name
		result.CallID = call.ID
		result.Duration = time.Since(start)
		slog.Debug("tool executed",
			"tool", call.Name,
			"failed", result.Failed(),
			"duration", result.Duration)
	}()

	t, ok := r.Get(call.Name)
	if !ok {
		return failure(FailureUnknownTool, "unknown tool: %s", call.Name)
	}

	res, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		if res.Failure != nil {
			return res
		}
		return failure(FailureToolError, "%s: %v", call.Name, err)
	}
	return res
}

// schemaFor reflects the JSON schema of an args struct, inlined so the
// model sees a single self-contained parameters object.
func schemaFor(v interface{}) map[string]interface{} {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}
