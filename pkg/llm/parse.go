package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	thinkTagPattern    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	textualCallPattern = regexp.MustCompile(`to=functions\.([a-zA-Z0-9_]+)`)
	jsonBlobPattern    = regexp.MustCompile(`(?s)(\{.*\})`)
)

// StripThinkTags removes <think>...</think> reasoning blocks that some
// models emit inline with the answer text.
func StripThinkTags(text string) string {
	if !strings.Contains(text, "<think>") {
		return text
	}
	return strings.TrimSpace(thinkTagPattern.ReplaceAllString(text, ""))
}

// ParseTextualToolCall recovers a tool call from models that print the
// invocation as text, e.g. `to=functions.web_search {"query": "go 1.24"}`,
// instead of populating the structured tool_calls field. It returns nil when
// the text does not contain a well-formed call.
func ParseTextualToolCall(text string) *ToolCall {
	if text == "" {
		return nil
	}
	m := textualCallPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	j := jsonBlobPattern.FindStringSubmatch(text)
	if j == nil {
		return nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(j[1]), &args); err != nil {
		return nil
	}
	return &ToolCall{
		ID:        "textual_call_" + uuid.NewString(),
		Name:      m[1],
		Arguments: args,
	}
}
