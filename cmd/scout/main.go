// Command scout is a research agent for the terminal: it answers questions
// by letting a language model search the web, fetch pages, crawl links and
// run local commands.
//
// Usage:
//
//	scout "what changed in go 1.24?"
//	scout -d 3 "state of post-quantum cryptography adoption"
//	scout --dd "https://example.com/docs"
//	scout history
//	scout cleanup 4-2
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/scout/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Ask     AskCmd     `cmd:"" default:"withargs" help:"Ask a question (default command)."`
	History HistoryCmd `cmd:"" help:"List saved conversations."`
	Cleanup CleanupCmd `cmd:"" help:"Delete saved conversations by ID, list, range, or 'all'."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"warn"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("scout %s\n", version)
	return nil
}

// loadConfig resolves the config path and loads it.
func (cli *CLI) loadConfig() (*config.Config, error) {
	path := cli.Config
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("scout"),
		kong.Description("Research agent for the terminal."),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
