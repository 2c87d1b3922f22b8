// Package agent drives the conversation loop: it sends the running message
// list to the model, executes the tool calls the model asks for, folds the
// results back in, and repeats until the model answers or the turn budget
// runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/history"
	"github.com/kadirpekel/scout/pkg/llm"
	"github.com/kadirpekel/scout/pkg/tools"
	"github.com/kadirpekel/scout/pkg/utils"
)

// State is the terminal state of one conversation.
type State string

const (
	// StateDone means the model produced a final answer within budget.
	StateDone State = "done"
	// StateAborted means the turn budget ran out; the answer is partial.
	StateAborted State = "aborted"
)

// RunOptions selects per-invocation behavior.
type RunOptions struct {
	// Model overrides the configured model when set.
	Model string
	// MaxTurns overrides the configured model round-trip budget when > 0.
	MaxTurns int
	// ForceSearch directs the model to search the web before answering.
	ForceSearch bool
	// DeepResearch enables the deep research directive with this many
	// rounds when > 0.
	DeepResearch int
	// DeepDive enables the deep dive directive.
	DeepDive bool
	// ContinueID resumes a saved conversation when > 0.
	ContinueID int64
	// SystemSuffix is extra system prompt text (expanded prompt aliases).
	SystemSuffix string
}

// Outcome is the result of one driven conversation.
type Outcome struct {
	Answer      string
	State       State
	Turns       []llm.Message
	Usage       llm.Usage
	RoundTrips  int
	SessionName string
	Elapsed     time.Duration
}

// HistoryStore is the slice of the history package the controller needs.
type HistoryStore interface {
	Save(ctx context.Context, in *history.Interaction) error
	Turns(ctx context.Context, id int64) ([]llm.Message, error)
}

// Controller owns one conversation for the lifetime of a CLI invocation.
// The message list is append-only; every model round trip sees the turns in
// the order they were produced.
type Controller struct {
	provider llm.Provider
	registry *tools.Registry
	store    HistoryStore
	cfg      *config.LLMConfig
	counter  *utils.TokenCounter
}

// New wires a controller. store may be nil to disable persistence.
func New(provider llm.Provider, registry *tools.Registry, store HistoryStore, cfg *config.LLMConfig) *Controller {
	model := cfg.Model
	counter, err := utils.NewTokenCounter(model)
	if err != nil {
		slog.Debug("Token counter unavailable, status omits token usage", "error", err)
		counter = nil
	}

	return &Controller{
		provider: provider,
		registry: registry,
		store:    store,
		cfg:      cfg,
		counter:  counter,
	}
}

// Run drives the conversation for query until the model answers, the turn
// budget runs out, or the model transport fails. Only the transport failure
// returns an error; everything else is an Outcome.
func (c *Controller) Run(ctx context.Context, query string, opts RunOptions) (*Outcome, error) {
	start := time.Now()

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = c.cfg.MaxTurns
	}
	if maxTurns <= 0 {
		maxTurns = 1
	}

	conversation, err := c.seedConversation(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{State: StateAborted, SessionName: history.SessionName(query)}
	var lastContent string

	for turn := 1; turn <= maxTurns; turn++ {
		final := turn == maxTurns

		status := c.statusLine(conversation, maxTurns-turn)
		conversation[0].Content = systemPrompt(opts, status)
		if final {
			conversation[0].Content += "\n\n" + finalTurnDirective
		}

		resp, err := c.provider.Chat(ctx, llm.Request{
			Model:        opts.Model,
			Messages:     conversation,
			Tools:        c.registry.List(),
			DisableTools: final,
			Temperature:  c.cfg.Temperature,
			MaxTokens:    c.cfg.MaxTokens,
		})
		outcome.RoundTrips = turn
		if err != nil {
			var malformed *llm.MalformedResponseError
			if errors.As(err, &malformed) {
				// Recoverable: tell the model what went wrong and let it
				// try again on the next turn.
				slog.Warn("Malformed model response", "turn", turn, "error", malformed)
				conversation = append(conversation, llm.Message{
					Role: llm.RoleUser,
					Content: fmt.Sprintf(
						"[diagnostic] your previous response could not be interpreted (%s); answer again in plain text or with a valid tool call",
						malformed.Reason),
				})
				continue
			}
			return nil, fmt.Errorf("model request failed: %w", err)
		}

		addUsage(&outcome.Usage, resp.Usage)

		content := llm.StripThinkTags(resp.Content)
		if content != "" {
			lastContent = content
		}

		if len(resp.ToolCalls) > 0 {
			// The assistant message with its tool_calls goes in before any
			// result so the correlation survives in the transcript.
			conversation = append(conversation, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   content,
				ToolCalls: resp.ToolCalls,
			})
			conversation = c.executeToolCalls(ctx, conversation, resp.ToolCalls)
			continue
		}

		if content == "" {
			slog.Warn("Model returned neither content nor tool calls", "turn", turn)
			conversation = append(conversation, llm.Message{
				Role:    llm.RoleUser,
				Content: "[diagnostic] your previous response was empty; answer the question",
			})
			continue
		}

		conversation = append(conversation, llm.Message{Role: llm.RoleAssistant, Content: content})
		outcome.State = StateDone
		outcome.Answer = content
		break
	}

	if outcome.State == StateAborted {
		outcome.Answer = partialAnswer(lastContent)
		conversation = append(conversation, llm.Message{Role: llm.RoleAssistant, Content: outcome.Answer})
	}

	outcome.Turns = conversation
	outcome.Elapsed = time.Since(start)

	c.save(ctx, query, opts, outcome)

	slog.Debug("Conversation finished",
		"state", outcome.State,
		"round_trips", outcome.RoundTrips,
		"tokens", outcome.Usage.TotalTokens,
		"elapsed", outcome.Elapsed)

	return outcome, nil
}

// seedConversation builds the initial message list: system prompt, prior
// turns when continuing, then the user query.
func (c *Controller) seedConversation(ctx context.Context, query string, opts RunOptions) ([]llm.Message, error) {
	conversation := []llm.Message{{Role: llm.RoleSystem}}

	if opts.ContinueID > 0 {
		if c.store == nil {
			return nil, fmt.Errorf("cannot continue conversation %d: history is disabled", opts.ContinueID)
		}
		prior, err := c.store.Turns(ctx, opts.ContinueID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation %d: %w", opts.ContinueID, err)
		}
		for _, msg := range prior {
			// The system message is rebuilt fresh each run.
			if msg.Role == llm.RoleSystem {
				continue
			}
			conversation = append(conversation, msg)
		}
	}

	return append(conversation, llm.Message{Role: llm.RoleUser, Content: query}), nil
}

// executeToolCalls runs the calls sequentially in emission order and appends
// one tool turn per call, in that same order, so the transcript the model
// sees next turn is reproducible.
func (c *Controller) executeToolCalls(ctx context.Context, conversation []llm.Message, calls []llm.ToolCall) []llm.Message {
	for _, call := range calls {
		result := c.registry.Execute(ctx, call)
		conversation = append(conversation, llm.Message{
			Role:       llm.RoleTool,
			Content:    result.Text(),
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}
	return conversation
}

// statusLine reports context usage and remaining budget, spliced into the
// system message each round trip rather than appended as its own turn.
func (c *Controller) statusLine(conversation []llm.Message, turnsLeft int) string {
	if c.counter == nil {
		return fmt.Sprintf("[SYSTEM UPDATE] turns remaining: %d", turnsLeft)
	}

	msgs := make([]utils.Message, 0, len(conversation))
	for _, m := range conversation {
		msgs = append(msgs, utils.Message{Role: m.Role, Content: m.Content})
	}
	used := c.counter.CountMessages(msgs)

	window := c.cfg.ContextWindow
	if window <= 0 {
		window = 128000
	}
	percent := used * 100 / window

	return fmt.Sprintf("[SYSTEM UPDATE] context tokens used: ~%d of %d (%d%%), turns remaining: %d",
		used, window, percent, turnsLeft)
}

// partialAnswer labels the best available content as a budget-limited
// result; with nothing accumulated it says so outright.
func partialAnswer(lastContent string) string {
	if strings.TrimSpace(lastContent) == "" {
		return "No definitive answer was reached within the turn budget. Try a higher max_turns, a narrower question, or deep research mode."
	}
	return "**Partial answer (turn budget reached):**\n\n" + lastContent
}

func (c *Controller) save(ctx context.Context, query string, opts RunOptions, outcome *Outcome) {
	if c.store == nil {
		return
	}

	model := opts.Model
	if model == "" {
		model = c.provider.ModelName()
	}

	in := &history.Interaction{
		SessionName: outcome.SessionName,
		Model:       model,
		Query:       query,
		Answer:      outcome.Answer,
		Turns:       outcome.Turns,
	}
	if err := c.store.Save(ctx, in); err != nil {
		slog.Warn("Failed to save conversation to history", "error", err)
	}
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
