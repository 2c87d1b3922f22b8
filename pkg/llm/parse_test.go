package llm

import (
	"strings"
	"testing"
)

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no tags",
			in:   "plain answer",
			want: "plain answer",
		},
		{
			name: "single block",
			in:   "<think>let me reason about this</think>The answer is 42.",
			want: "The answer is 42.",
		},
		{
			name: "multiline block",
			in:   "<think>step one\nstep two</think>\n\nDone.",
			want: "Done.",
		},
		{
			name: "multiple blocks",
			in:   "<think>a</think>first<think>b</think> second",
			want: "first second",
		},
		{
			name: "unclosed tag is left alone",
			in:   "<think>never closed",
			want: "<think>never closed",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripThinkTags(tt.in); got != tt.want {
				t.Errorf("StripThinkTags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTextualToolCall(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantName string
		wantArg  string
		wantNil  bool
	}{
		{
			name:     "well formed call",
			in:       `I should search. to=functions.web_search {"query": "golang releases"}`,
			wantName: "web_search",
			wantArg:  "golang releases",
		},
		{
			name:     "call with surrounding prose",
			in:       "Let me fetch that.\nto=functions.get_url_content\n{\"urls\": [\"https://go.dev\"], \"query\": \"x\"}",
			wantName: "get_url_content",
		},
		{
			name:    "no function marker",
			in:      `just an answer with {"query": "irrelevant"}`,
			wantNil: true,
		},
		{
			name:    "marker without JSON",
			in:      "to=functions.web_search please",
			wantNil: true,
		},
		{
			name:    "marker with invalid JSON",
			in:      `to=functions.web_search {"query": unquoted}`,
			wantNil: true,
		},
		{
			name:    "empty input",
			in:      "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTextualToolCall(tt.in)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ParseTextualToolCall(%q) = %+v, want nil", tt.in, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseTextualToolCall(%q) = nil, want call", tt.in)
			}
			if got.Name != tt.wantName {
				t.Errorf("name = %q, want %q", got.Name, tt.wantName)
			}
			if got.ID == "" || !strings.HasPrefix(got.ID, "textual_call_") {
				t.Errorf("ID = %q, want generated textual_call_ prefix", got.ID)
			}
			if tt.wantArg != "" {
				if query, _ := got.Arguments["query"].(string); query != tt.wantArg {
					t.Errorf("query = %q, want %q", query, tt.wantArg)
				}
			}
		})
	}
}

func TestParseTextualToolCall_UniqueIDs(t *testing.T) {
	in := `to=functions.web_search {"query": "x"}`
	first := ParseTextualToolCall(in)
	second := ParseTextualToolCall(in)
	if first == nil || second == nil {
		t.Fatal("expected both parses to succeed")
	}
	if first.ID == second.ID {
		t.Errorf("expected unique IDs, both were %q", first.ID)
	}
}
