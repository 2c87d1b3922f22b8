package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/agent"
	"github.com/kadirpekel/scout/pkg/cache"
	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/history"
	"github.com/kadirpekel/scout/pkg/llm"
	"github.com/kadirpekel/scout/pkg/research"
	"github.com/kadirpekel/scout/pkg/search"
	"github.com/kadirpekel/scout/pkg/tools"
	"github.com/kadirpekel/scout/pkg/webpage"
)

// AskCmd runs one question through the agent.
type AskCmd struct {
	Query []string `arg:"" optional:"" help:"The question to ask."`

	Depth       int    `short:"d" help:"Deep research mode with N search rounds." placeholder:"N"`
	DeepDive    bool   `name:"dd" help:"Deep dive mode: crawl links from the most relevant page."`
	Model       string `short:"m" help:"Override the configured model." placeholder:"MODEL"`
	ForceSearch bool   `name:"fs" help:"Force a web search even if the model would answer from memory."`
	Continue    int64  `short:"c" help:"Continue a saved conversation by ID." placeholder:"ID"`
	MaxTurns    int    `help:"Override the model round-trip budget." placeholder:"N"`
	NoCache     bool   `help:"Skip the research cache for this run."`
}

func (c *AskCmd) Run(cli *CLI) error {
	query := strings.TrimSpace(strings.Join(c.Query, " "))
	if query == "" && c.Continue == 0 {
		return fmt.Errorf("nothing to ask; pass a question or see 'scout --help'")
	}
	if query == "" {
		query = "Continue."
	}

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store := openCache(ctx, cfg, c.NoCache)
	defer store.Close()

	hist := openHistory(cfg)
	if hist != nil {
		defer hist.Close()
	}

	provider, err := llm.New(&cfg.LLM)
	if err != nil {
		return err
	}
	defer provider.Close()

	searcher, err := search.New(&cfg.Search)
	if err != nil {
		return err
	}

	summarizer := llm.NewSummarizer(provider, cfg.LLM.SummaryModel)

	memory := openMemory(cfg)

	engine, err := research.New(research.Options{
		Search:     searcher,
		Fetcher:    webpage.NewFetcher(&cfg.Search),
		Cache:      store,
		Summarizer: summarizer,
		Memory:     memory,
		Config:     &cfg.Research,
		MaxResults: cfg.Search.MaxResults,
		CacheTTL:   cfg.Cache.TTL.Duration(),
	})
	if err != nil {
		return err
	}

	registry, closeTools := buildRegistry(ctx, cfg, engine, summarizer, c)
	defer closeTools()

	opts := agent.RunOptions{
		Model:        c.Model,
		MaxTurns:     c.MaxTurns,
		ForceSearch:  c.ForceSearch,
		DeepDive:     c.DeepDive,
		ContinueID:   c.Continue,
		SystemSuffix: expandAlias(&query, cfg.Prompts),
	}
	if c.Depth > 0 {
		opts.DeepResearch = c.Depth
	}

	var controllerStore agent.HistoryStore
	if hist != nil {
		controllerStore = hist
	}

	controller := agent.New(provider, registry, controllerStore, &cfg.LLM)

	outcome, err := controller.Run(ctx, query, opts)
	if err != nil {
		return err
	}

	renderAnswer(outcome.Answer)

	slog.Info("Done",
		"state", outcome.State,
		"round_trips", outcome.RoundTrips,
		"tokens", outcome.Usage.TotalTokens,
		"elapsed", outcome.Elapsed.Round(time.Millisecond))

	return nil
}

// openCache returns the SQL-backed research cache, degraded to an
// always-miss store when disabled or unavailable. Expired rows are swept at
// startup; a failed sweep only costs storage, never correctness.
func openCache(ctx context.Context, cfg *config.Config, noCache bool) cache.Store {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNoop()
	}

	ensureDataDir(cfg.Cache.Database.Database)

	store, err := cache.Open(&cfg.Cache)
	if err != nil {
		slog.Warn("Research cache unavailable, continuing without it", "error", err)
		return cache.NewNoop()
	}

	if removed, err := store.CleanupExpired(ctx); err != nil {
		slog.Warn("Failed to sweep expired cache entries", "error", err)
	} else if removed > 0 {
		slog.Debug("Swept expired cache entries", "removed", removed)
	}

	return store
}

// openHistory returns the history store, or nil when it cannot be opened;
// the agent runs fine without persistence.
func openHistory(cfg *config.Config) *history.SQLStore {
	ensureDataDir(cfg.History.Database.Database)

	store, err := history.Open(&cfg.History)
	if err != nil {
		slog.Warn("History unavailable, conversation will not be saved", "error", err)
		return nil
	}
	return store
}

// openMemory returns the findings memory, or nil when unconfigured or
// unavailable.
func openMemory(cfg *config.Config) *research.Memory {
	if cfg.Research.Memory.Path == "" {
		return nil
	}

	memory, err := research.NewMemory(&cfg.Research.Memory, &cfg.LLM)
	if err != nil {
		slog.Warn("Research memory unavailable", "error", err)
		return nil
	}
	return memory
}

// buildRegistry assembles the capability set for this invocation. The
// research strategies register only in their modes so a plain question
// advertises a small, focused tool list.
func buildRegistry(ctx context.Context, cfg *config.Config, engine *research.Engine, summarizer *llm.Summarizer, c *AskCmd) (*tools.Registry, func()) {
	registry := tools.NewRegistry()
	links := tools.NewLinkIndex()

	registry.Register(tools.NewWebSearchTool(engine, cfg.Search.MaxResults))
	registry.Register(tools.NewFetchURLTool(engine, summarizer, links, cfg.Tools.MaxOutputChars, false))
	registry.Register(tools.NewExtractLinksTool(engine, links))
	registry.Register(tools.NewRunCommandTool(&cfg.Tools))
	registry.Register(tools.NewDatetimeTool())

	if c.Depth > 0 {
		registry.Register(tools.NewDeepResearchTool(engine, c.Depth))
	}
	if c.DeepDive {
		registry.Register(tools.NewDeepDiveTool(engine, cfg.Research.DiveDepth))
	}
	if memory := engine.Memory(); memory != nil {
		registry.Register(tools.NewSaveFindingTool(memory))
		registry.Register(tools.NewQueryMemoryTool(memory))
	}

	var sources []*tools.MCPSource
	for name, serverCfg := range cfg.Tools.MCPServers {
		source, err := tools.ConnectMCP(ctx, name, serverCfg)
		if err != nil {
			slog.Warn("Skipping MCP server", "name", name, "error", err)
			continue
		}
		source.RegisterAll(registry)
		sources = append(sources, source)
	}

	closeAll := func() {
		for _, source := range sources {
			if err := source.Close(); err != nil {
				slog.Debug("Failed to close MCP server", "error", err)
			}
		}
	}
	return registry, closeAll
}

// expandAlias handles queries that start with "/name": the named prompt
// from the config's prompts section becomes extra system prompt text, and
// the alias is stripped from the query.
func expandAlias(query *string, prompts map[string]string) string {
	q := *query
	if !strings.HasPrefix(q, "/") {
		return ""
	}

	name, rest, _ := strings.Cut(q[1:], " ")
	prompt, ok := prompts[name]
	if !ok {
		return ""
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		rest = "Proceed."
	}
	*query = rest
	return prompt
}

// ensureDataDir makes sure the sqlite file's directory exists; other
// drivers carry a DSN instead of a path.
func ensureDataDir(path string) {
	if path == "" || !strings.Contains(path, string(os.PathSeparator)) {
		return
	}
	dir := path[:strings.LastIndex(path, string(os.PathSeparator))]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Debug("Failed to create data directory", "dir", dir, "error", err)
	}
}
