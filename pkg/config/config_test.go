package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := writeConfig(t, "llm:\n  model: gpt-4o\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Provider != LLMProviderOpenAI {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if cfg.LLM.SummaryModel != "gpt-4o" {
		t.Errorf("LLM.SummaryModel = %q, want gpt-4o (defaults to model)", cfg.LLM.SummaryModel)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("LLM.APIKey = %q, want sk-test from env", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxTurns != 8 {
		t.Errorf("LLM.MaxTurns = %d, want 8", cfg.LLM.MaxTurns)
	}
	if cfg.Search.Provider != SearchProviderDuckDuckGo {
		t.Errorf("Search.Provider = %q, want duckduckgo", cfg.Search.Provider)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Research.Rounds != 3 {
		t.Errorf("Research.Rounds = %d, want 3", cfg.Research.Rounds)
	}
	if cfg.Cache.TTL.Duration() != 24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
	}
	if cfg.Cache.Database.Driver != "sqlite" {
		t.Errorf("Cache.Database.Driver = %q, want sqlite", cfg.Cache.Database.Driver)
	}
	if cfg.Tools.CommandTimeout.Duration() != 60*time.Second {
		t.Errorf("Tools.CommandTimeout = %v, want 60s", cfg.Tools.CommandTimeout)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SCOUT_TEST_KEY", "expanded-key")
	t.Setenv("SCOUT_TEST_ROUNDS", "4")

	path := writeConfig(t, `
llm:
  api_key: ${SCOUT_TEST_KEY}
research:
  rounds: ${SCOUT_TEST_ROUNDS}
search:
  provider: duckduckgo
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.APIKey != "expanded-key" {
		t.Errorf("LLM.APIKey = %q, want expanded-key", cfg.LLM.APIKey)
	}
	if cfg.Research.Rounds != 4 {
		t.Errorf("Research.Rounds = %d, want 4 (env-expanded integer)", cfg.Research.Rounds)
	}
}

func TestLoad_EnvDefaultSyntax(t *testing.T) {
	os.Unsetenv("SCOUT_UNSET_VAR")

	path := writeConfig(t, "llm:\n  model: ${SCOUT_UNSET_VAR:-fallback-model}\n  api_key: k\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Model != "fallback-model" {
		t.Errorf("LLM.Model = %q, want fallback-model", cfg.LLM.Model)
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want missing-file error for explicit path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not: a: mapping\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_llm_provider", func(c *Config) { c.LLM.Provider = "watson" }},
		{"zero_max_turns", func(c *Config) { c.LLM.MaxTurns = -1 }},
		{"bad_search_provider", func(c *Config) { c.Search.Provider = "altavista" }},
		{"brave_without_key", func(c *Config) {
			c.Search.Provider = SearchProviderBrave
			c.Search.APIKey = ""
		}},
		{"bad_cache_driver", func(c *Config) { c.Cache.Database.Driver = "oracle" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	var got struct {
		TTL Duration `yaml:"ttl"`
	}

	if err := yaml.Unmarshal([]byte("ttl: 1h30m\n"), &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if got.TTL.Duration() != 90*time.Minute {
		t.Errorf("TTL = %v, want 1h30m", got.TTL)
	}

	if err := yaml.Unmarshal([]byte("ttl: bogus\n"), &got); err == nil {
		t.Error("Unmarshal error = nil, want invalid duration error")
	}

	out, err := yaml.Marshal(struct {
		TTL Duration `yaml:"ttl"`
	}{TTL: Duration(2 * time.Hour)})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != "ttl: 2h0m0s\n" {
		t.Errorf("Marshal = %q, want ttl: 2h0m0s", out)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "sqlite_path",
			cfg:  DatabaseConfig{Driver: "sqlite", Database: "/tmp/scout.db"},
			want: "/tmp/scout.db",
		},
		{
			name: "postgres_full",
			cfg: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, Database: "scout",
				Username: "u", Password: "p", SSLMode: "disable",
			},
			want: "host=db port=5432 dbname=scout user=u password=p sslmode=disable",
		},
		{
			name: "mysql_with_credentials",
			cfg: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306, Database: "scout",
				Username: "u", Password: "p",
			},
			want: "u:p@tcp(db:3306)/scout?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDatabaseConfig_DriverName(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite"}
	if got := cfg.DriverName(); got != "sqlite3" {
		t.Errorf("DriverName() = %q, want sqlite3", got)
	}
	cfg.Driver = "postgres"
	if got := cfg.DriverName(); got != "postgres" {
		t.Errorf("DriverName() = %q, want postgres", got)
	}
}
