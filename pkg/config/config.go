// Package config loads and validates scout's YAML configuration.
//
// Values support ${VAR}, ${VAR:-default} and $VAR environment expansion, and
// a .env/.env.local file is honored when present. Every section applies its
// own defaults so a missing config file still yields a runnable setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	LLM      LLMConfig         `yaml:"llm,omitempty"`
	Search   SearchConfig      `yaml:"search,omitempty"`
	Research ResearchConfig    `yaml:"research,omitempty"`
	Cache    CacheConfig       `yaml:"cache,omitempty"`
	History  HistoryConfig     `yaml:"history,omitempty"`
	Tools    ToolsConfig       `yaml:"tools,omitempty"`
	Prompts  map[string]string `yaml:"prompts,omitempty"`
}

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the language model collaborator.
type LLMConfig struct {
	Provider LLMProvider `yaml:"provider,omitempty"`
	Model    string      `yaml:"model,omitempty"`
	// SummaryModel handles page summaries and research gap analysis.
	// Defaults to Model.
	SummaryModel string   `yaml:"summary_model,omitempty"`
	APIKey       string   `yaml:"api_key,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty"`
	// ContextWindow is the token budget reported in per-turn status updates.
	ContextWindow int      `yaml:"context_window,omitempty"`
	MaxTurns      int      `yaml:"max_turns,omitempty"`
	Timeout       Duration `yaml:"timeout,omitempty"`
	// Insecure skips TLS verification, for self-hosted endpoints behind
	// self-signed certificates.
	Insecure bool `yaml:"insecure,omitempty"`
}

// SearchProvider identifies the web search backend.
type SearchProvider string

const (
	SearchProviderDuckDuckGo SearchProvider = "duckduckgo"
	SearchProviderBrave      SearchProvider = "brave"
)

// SearchConfig configures the web search backend.
type SearchConfig struct {
	Provider   SearchProvider `yaml:"provider,omitempty"`
	APIKey     string         `yaml:"api_key,omitempty"`
	MaxResults int            `yaml:"max_results,omitempty"`
	Timeout    Duration       `yaml:"timeout,omitempty"`
}

// ResearchConfig bounds the deep research and deep dive strategies.
type ResearchConfig struct {
	// Rounds is the default number of deep research search rounds.
	Rounds int `yaml:"rounds,omitempty"`
	// DiveDepth is the default deep dive crawl depth.
	DiveDepth int `yaml:"dive_depth,omitempty"`
	// DiveWorkers caps concurrent fetches within one crawl level.
	DiveWorkers int `yaml:"dive_workers,omitempty"`
	// MaxPages caps total pages fetched by one deep dive.
	MaxPages int          `yaml:"max_pages,omitempty"`
	Memory   MemoryConfig `yaml:"memory,omitempty"`
}

// MemoryConfig configures the persistent research findings store.
type MemoryConfig struct {
	// Path of the on-disk vector collection. Empty disables the memory
	// tools.
	Path string `yaml:"path,omitempty"`
	// EmbeddingBaseURL is an OpenAI-compatible embeddings endpoint.
	// Defaults to the LLM base URL.
	EmbeddingBaseURL string `yaml:"embedding_base_url,omitempty"`
	EmbeddingModel   string `yaml:"embedding_model,omitempty"`
	EmbeddingAPIKey  string `yaml:"embedding_api_key,omitempty"`
}

// CacheConfig configures the research cache store.
type CacheConfig struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
	TTL      Duration       `yaml:"ttl,omitempty"`
	Disabled bool           `yaml:"disabled,omitempty"`
}

// HistoryConfig configures the conversation history store.
type HistoryConfig struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
}

// ToolsConfig configures tool execution.
type ToolsConfig struct {
	CommandTimeout Duration `yaml:"command_timeout,omitempty"`
	// MaxOutputChars truncates run_command output beyond this size.
	MaxOutputChars int `yaml:"max_output_chars,omitempty"`
	// MCPServers declares external stdio tool servers, keyed by name.
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers,omitempty"`
}

// MCPServerConfig declares one external MCP tool server.
type MCPServerConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// DefaultDir returns scout's data directory (~/.scout).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scout"
	}
	return filepath.Join(home, ".scout")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Search.SetDefaults()
	c.Research.SetDefaults()
	c.Cache.SetDefaults()
	c.History.SetDefaults()
	c.Tools.SetDefaults()
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Research.Validate(); err != nil {
		return fmt.Errorf("research: %w", err)
	}
	if err := c.Cache.Database.Validate(); err != nil {
		return fmt.Errorf("cache.database: %w", err)
	}
	if err := c.History.Database.Validate(); err != nil {
		return fmt.Errorf("history.database: %w", err)
	}
	return nil
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = detectProviderFromEnv()
	}
	if c.Model == "" {
		switch c.Provider {
		case LLMProviderOpenAI:
			c.Model = "gpt-4o-mini"
		case LLMProviderGemini:
			c.Model = "gemini-2.0-flash"
		}
	}
	if c.SummaryModel == "" {
		c.SummaryModel = c.Model
	}
	if c.APIKey == "" {
		c.APIKey = getAPIKeyFromEnv(c.Provider)
	}
	if c.BaseURL == "" && c.Provider == LLMProviderOpenAI {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Temperature == nil {
		temp := 0.7
		c.Temperature = &temp
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 128000
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 8
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * secondNS
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderOpenAI, LLMProviderGemini:
	default:
		return fmt.Errorf("invalid provider %q (valid: openai, gemini)", c.Provider)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

func (c *SearchConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = SearchProviderDuckDuckGo
	}
	if c.APIKey == "" && c.Provider == SearchProviderBrave {
		c.APIKey = os.Getenv("BRAVE_API_KEY")
	}
	if c.MaxResults == 0 {
		c.MaxResults = 5
	}
	if c.Timeout == 0 {
		c.Timeout = 20 * secondNS
	}
}

func (c *SearchConfig) Validate() error {
	switch c.Provider {
	case SearchProviderDuckDuckGo, SearchProviderBrave:
	default:
		return fmt.Errorf("invalid provider %q (valid: duckduckgo, brave)", c.Provider)
	}
	if c.Provider == SearchProviderBrave && c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q", c.Provider)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be at least 1")
	}
	return nil
}

func (c *ResearchConfig) SetDefaults() {
	if c.Rounds == 0 {
		c.Rounds = 3
	}
	if c.DiveDepth == 0 {
		c.DiveDepth = 2
	}
	if c.DiveWorkers == 0 {
		c.DiveWorkers = 4
	}
	if c.MaxPages == 0 {
		c.MaxPages = 25
	}
	if c.Memory.EmbeddingModel == "" {
		c.Memory.EmbeddingModel = "text-embedding-3-small"
	}
}

func (c *ResearchConfig) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if c.DiveDepth < 1 {
		return fmt.Errorf("dive_depth must be at least 1")
	}
	if c.DiveWorkers < 1 {
		return fmt.Errorf("dive_workers must be at least 1")
	}
	return nil
}

func (c *CacheConfig) SetDefaults() {
	c.Database.SetDefaults()
	if c.Database.Database == "" {
		c.Database.Driver = "sqlite"
		c.Database.Database = filepath.Join(DefaultDir(), "scout.db")
	}
	if c.TTL == 0 {
		c.TTL = 24 * hourNS
	}
}

func (c *HistoryConfig) SetDefaults() {
	c.Database.SetDefaults()
	if c.Database.Database == "" {
		c.Database.Driver = "sqlite"
		c.Database.Database = filepath.Join(DefaultDir(), "scout.db")
	}
}

func (c *ToolsConfig) SetDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 60 * secondNS
	}
	if c.MaxOutputChars == 0 {
		c.MaxOutputChars = 50000
	}
}

// Load reads, expands and validates a config file. A missing file at the
// default path is not an error; defaults apply.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		expanded := ExpandEnvVarsInData(raw)
		out, err := yaml.Marshal(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode config: %w", err)
		}
		if err := yaml.Unmarshal(out, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultPath():
		// First run without a config file.
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config file not found: %s", path)
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func detectProviderFromEnv() LLMProvider {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return LLMProviderOpenAI
	}
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return LLMProviderGemini
	}
	return LLMProviderOpenAI
}

func getAPIKeyFromEnv(provider LLMProvider) string {
	switch provider {
	case LLMProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case LLMProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}
