package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/httpclient"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
// The API key is optional so self-hosted servers (Ollama, vLLM, llama.cpp)
// work with just a base URL.
type OpenAIProvider struct {
	cfg        *config.LLMConfig
	httpClient *httpclient.Client
}

// OpenAIRequest is the chat completions request body.
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Tools       []OpenAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
}

// OpenAIMessage is a single message on the wire. Content is always present;
// assistant messages that only carry tool calls send it empty.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type OpenAITool struct {
	Type     string             `json:"type"`
	Function OpenAIToolFunction `json:"function"`
}

type OpenAIToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIResponse is the chat completions response body.
type OpenAIResponse struct {
	Choices []OpenAIChoice `json:"choices"`
	Usage   Usage          `json:"usage"`
	Error   *APIError      `json:"error,omitempty"`
}

type OpenAIChoice struct {
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// APIError is the error object OpenAI-compatible servers embed in failure
// responses.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAI builds a provider for cfg.
func NewOpenAI(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}

	opts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	}
	if cfg.Insecure {
		opts = append(opts, httpclient.WithTLSConfig(&httpclient.TLSConfig{InsecureSkipVerify: true}))
	}

	return &OpenAIProvider{
		cfg:        cfg,
		httpClient: httpclient.New(opts...),
	}, nil
}

// ModelName returns the configured default model.
func (p *OpenAIProvider) ModelName() string {
	return p.cfg.Model
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

// Chat performs one completion round trip.
func (p *OpenAIProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	wire := p.buildRequest(req)

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	// The retrying client can return both a response and an error for
	// non-2xx statuses, so inspect the body before the error.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			respBody, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, fmt.Errorf("API request failed with status %d (unreadable body: %v)", resp.StatusCode, readErr)
			}
			if apiErr := parseAPIError(respBody); apiErr != nil {
				return nil, fmt.Errorf("API request failed with status %d: %s (type: %s, code: %s)",
					resp.StatusCode, apiErr.Message, apiErr.Type, apiErr.Code)
			}
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, snippet(string(respBody), 500))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseChatResponse(respBody)
}

func (p *OpenAIProvider) buildRequest(req Request) OpenAIRequest {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]OpenAIMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		wireMsg := OpenAIMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, tc := range msg.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			wireMsg.ToolCalls = append(wireMsg.ToolCalls, OpenAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: OpenAIFunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		messages = append(messages, wireMsg)
	}

	wire := OpenAIRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = p.cfg.MaxTokens
	}
	if req.Temperature != nil {
		wire.Temperature = req.Temperature
	} else if p.cfg.Temperature != nil {
		wire.Temperature = p.cfg.Temperature
	}

	if !req.DisableTools && len(req.Tools) > 0 {
		wire.Tools = make([]OpenAITool, len(req.Tools))
		for i, t := range req.Tools {
			wire.Tools[i] = OpenAITool{
				Type:     "function",
				Function: OpenAIToolFunction(t),
			}
		}
		wire.ToolChoice = "auto"
	}

	return wire
}

// parseChatResponse interprets a 200 body. Unparseable JSON and empty choice
// lists surface as MalformedResponseError so the conversation loop can feed
// a diagnostic back to the model instead of aborting.
func parseChatResponse(body []byte) (*Response, error) {
	var wire OpenAIResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON body", Body: string(body)}
	}
	if wire.Error != nil {
		return nil, fmt.Errorf("API error: %s", wire.Error.Message)
	}
	if len(wire.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices returned", Body: string(body)}
	}

	choice := wire.Choices[0]
	result := &Response{
		Content:      StripThinkTags(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage:        wire.Usage,
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, &MalformedResponseError{
				Reason: fmt.Sprintf("tool call %s carries unparseable arguments", tc.Function.Name),
				Body:   tc.Function.Arguments,
			}
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	// Some models print the invocation as text instead of using the
	// structured field. Only consult the fallback when nothing structured
	// came back.
	if len(result.ToolCalls) == 0 {
		if tc := ParseTextualToolCall(result.Content); tc != nil {
			result.ToolCalls = append(result.ToolCalls, *tc)
		}
	}

	return result, nil
}

func parseAPIError(body []byte) *APIError {
	if len(body) == 0 {
		return nil
	}
	var wrapper struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return &wrapper.Error
	}
	return nil
}
