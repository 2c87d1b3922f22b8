package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/history"
)

// HistoryCmd lists saved conversations, newest first.
type HistoryCmd struct {
	Limit int `short:"n" help:"Maximum conversations to list." default:"20"`
}

func (c *HistoryCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(&cfg.History)
	if err != nil {
		return fmt.Errorf("history unavailable: %w", err)
	}
	defer store.Close()

	interactions, err := store.List(context.Background(), c.Limit)
	if err != nil {
		return err
	}

	if len(interactions) == 0 {
		fmt.Println("No saved conversations.")
		return nil
	}

	fmt.Printf("%-5s %-20s %-18s %-8s %s\n", "ID", "SESSION", "MODEL", "AGE", "QUERY")
	for _, in := range interactions {
		fmt.Printf("%-5d %-20s %-18s %-8s %s\n",
			in.ID,
			clip(in.SessionName, 20),
			clip(in.Model, 18),
			age(in.CreatedAt),
			clip(in.Query, 60))
	}
	return nil
}

// CleanupCmd deletes saved conversations.
type CleanupCmd struct {
	Spec string `arg:"" help:"What to delete: an ID, a comma list, a range like 4-2, or 'all'."`
}

func (c *CleanupCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(&cfg.History)
	if err != nil {
		return fmt.Errorf("history unavailable: %w", err)
	}
	defer store.Close()

	deleted, err := store.Delete(context.Background(), c.Spec)
	if err != nil {
		if errors.Is(err, history.ErrInvalidRange) {
			return fmt.Errorf("%w: %q (expected an ID, a comma list, A-B, or 'all')", err, c.Spec)
		}
		return err
	}

	fmt.Printf("Deleted %d conversation(s).\n", deleted)
	return nil
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max-1] + "…"
	}
	return s
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
