// Package llm provides chat-completion providers for the conversation loop.
//
// A Provider turns a Request (messages plus the available tool definitions)
// into a Response carrying assistant text and/or tool calls. Two providers
// are implemented: an OpenAI-compatible HTTP provider and a Gemini provider
// built on the official genai SDK.
package llm

import (
	"context"
	"fmt"

	"github.com/kadirpekel/scout/pkg/config"
)

// Message roles used on the chat wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat turn. For RoleTool messages ToolCallID correlates
// the result with the assistant call that requested it and Name carries the
// tool name.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolCall is a model-issued invocation of a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolDef describes a callable tool advertised to the model.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Request is a single chat-completion round trip.
//
// Model overrides the provider's configured model when set (used for the
// cheaper summary model). DisableTools omits tool definitions from the wire
// request so the model must answer in plain text.
type Request struct {
	Model        string
	Messages     []Message
	Tools        []ToolDef
	DisableTools bool
	Temperature  *float64
	MaxTokens    int
}

// Response is the parsed result of one completion.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is a chat-completion backend.
type Provider interface {
	// Chat performs one completion round trip.
	Chat(ctx context.Context, req Request) (*Response, error)

	// ModelName returns the default model identifier.
	ModelName() string

	// Close releases provider resources.
	Close() error
}

// MalformedResponseError reports a model response that cannot be interpreted:
// an unparseable body, a response with no choices, or a turn that carries
// neither content nor tool calls.
type MalformedResponseError struct {
	Reason string
	Body   string
}

func (e *MalformedResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("malformed model response: %s", e.Reason)
	}
	return fmt.Sprintf("malformed model response: %s: %s", e.Reason, snippet(e.Body, 200))
}

// New builds a Provider from the LLM configuration.
func New(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.LLMProviderOpenAI, "":
		return NewOpenAI(cfg)
	case config.LLMProviderGemini:
		return NewGemini(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
