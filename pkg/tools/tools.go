// Package tools implements the capability set the model can invoke: web
// search, page fetching, link extraction, shell execution, research
// strategies, findings memory, and external MCP servers. Every invocation
// produces a Result; failures are data handed back to the model, never
// faults that end the conversation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// FailureKind enumerates the recoverable tool failure classes.
type FailureKind string

const (
	FailureUnknownTool       FailureKind = "unknown_tool"
	FailureInvalidArguments  FailureKind = "invalid_arguments"
	FailureFetchFailed       FailureKind = "fetch_failed"
	FailureSearchUnavailable FailureKind = "search_unavailable"
	FailureShellExecution    FailureKind = "shell_execution_failed"
	FailureToolError         FailureKind = "tool_error"
)

// Failure describes why a tool invocation produced no usable payload.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the outcome of one tool invocation, correlated back to the
// originating call by CallID.
type Result struct {
	ToolName string        `json:"tool_name"`
	CallID   string        `json:"call_id,omitempty"`
	Content  string        `json:"content,omitempty"`
	Failure  *Failure      `json:"failure,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Text renders the result for the model: the payload on success, an error
// object it can react to on failure.
func (r Result) Text() string {
	if r.Failure == nil {
		return r.Content
	}
	payload, err := json.Marshal(map[string]string{
		"error": r.Failure.Message,
		"kind":  string(r.Failure.Kind),
	})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, r.Failure.Message)
	}
	return string(payload)
}

// Failed reports whether the invocation produced a failure.
func (r Result) Failed() bool {
	return r.Failure != nil
}

func failure(kind FailureKind, format string, args ...interface{}) Result {
	return Result{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

func success(content string) Result {
	return Result{Content: content}
}

// jsonPayload marshals a tool payload for the model; marshal trouble
// becomes a ToolError result instead of a fault.
func jsonPayload(v interface{}) Result {
	payload, err := json.Marshal(v)
	if err != nil {
		return failure(FailureToolError, "failed to encode tool payload: %v", err)
	}
	return success(string(payload))
}

// Tool is one model-invocable capability.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON schema of the tool's arguments object.
	Schema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (Result, error)
}

// decodeArgs decodes a raw argument map into a typed args struct, weakly
// typed so "5", 5 and 5.0 all satisfy an int field.
func decodeArgs(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
