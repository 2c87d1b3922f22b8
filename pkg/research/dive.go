package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/scout/pkg/webpage"
)

// CrawlStatus tags the outcome of one crawl fetch.
type CrawlStatus string

const (
	StatusFetched CrawlStatus = "fetched"
	StatusFailed  CrawlStatus = "failed"
)

// CrawlNode is one page visited during a deep dive. Nodes live only for the
// duration of the crawl; the synthesized report text is what survives into
// the conversation.
type CrawlNode struct {
	URL    string         `json:"url"`
	Depth  int            `json:"depth"`
	Status CrawlStatus    `json:"status"`
	Title  string         `json:"title,omitempty"`
	Text   string         `json:"-"`
	Links  []webpage.Link `json:"-"`
	Err    string         `json:"error,omitempty"`
}

// DiveReport is the outcome of a deep dive crawl.
type DiveReport struct {
	Seed  string      `json:"seed"`
	Nodes []CrawlNode `json:"nodes"`
	Text  string      `json:"text"`
}

const nodeTextCap = 4000

// DeepDive crawls breadth-first from seed, at most depth levels deep. Pages
// within one level fetch concurrently up to the configured worker count, but
// a level completes before the next level's frontier is computed, so
// discovery order is reproducible. Each normalized URL is fetched at most
// once; failed fetches are recorded and contribute no links.
func (e *Engine) DeepDive(ctx context.Context, seed string, depth int) (*DiveReport, error) {
	if depth <= 0 {
		depth = e.cfg.DiveDepth
	}

	seedKey, err := webpage.NormalizeURL(seed)
	if err != nil {
		return nil, &webpage.FetchFailedError{URL: seed, Reason: "invalid seed URL", Err: err}
	}

	report := &DiveReport{Seed: seed}
	visited := map[string]bool{seedKey: true}
	frontier := []string{seed}
	total := 0

	for level := 0; level < depth && len(frontier) > 0; level++ {
		if remaining := e.cfg.MaxPages - total; len(frontier) > remaining {
			frontier = frontier[:remaining]
		}

		results := make([]CrawlNode, len(frontier))

		var g errgroup.Group
		g.SetLimit(e.cfg.DiveWorkers)
		for i, pageURL := range frontier {
			i, pageURL := i, pageURL
			g.Go(func() error {
				results[i] = e.fetchNode(ctx, pageURL, level)
				return nil
			})
		}
		_ = g.Wait()

		total += len(frontier)
		report.Nodes = append(report.Nodes, results...)

		// Frontier for the next level, in this level's discovery order.
		var next []string
		if level+1 < depth && total < e.cfg.MaxPages {
			for _, node := range results {
				if node.Status != StatusFetched {
					continue
				}
				for _, link := range node.Links {
					key, err := webpage.NormalizeURL(link.URL)
					if err != nil || visited[key] {
						continue
					}
					visited[key] = true
					next = append(next, link.URL)
				}
			}
		}
		frontier = next
	}

	report.Text = synthesizeDive(report.Nodes)

	slog.Debug("Deep dive complete",
		"seed", seed, "depth", depth, "pages", total, "nodes", len(report.Nodes))

	return report, nil
}

func (e *Engine) fetchNode(ctx context.Context, pageURL string, depth int) CrawlNode {
	doc, cached, err := e.Fetch(ctx, pageURL)
	if err != nil {
		slog.Debug("Crawl fetch failed", "url", pageURL, "depth", depth, "error", err)
		return CrawlNode{URL: pageURL, Depth: depth, Status: StatusFailed, Err: err.Error()}
	}

	slog.Debug("Crawl fetch complete",
		"url", pageURL, "depth", depth, "links", len(doc.Links), "cached", cached)

	return CrawlNode{
		URL:    pageURL,
		Depth:  depth,
		Status: StatusFetched,
		Title:  doc.Title,
		Text:   doc.Text,
		Links:  doc.Links,
	}
}

// synthesizeDive flattens fetched nodes into one text block, page texts
// capped so a broad crawl still fits a model context.
func synthesizeDive(nodes []CrawlNode) string {
	var b strings.Builder
	for _, node := range nodes {
		if node.Status != StatusFetched {
			continue
		}
		text := node.Text
		if len(text) > nodeTextCap {
			text = text[:nodeTextCap] + "\n[truncated]"
		}
		title := node.Title
		if title == "" {
			title = node.URL
		}
		fmt.Fprintf(&b, "## %s (%s, depth %d)\n\n%s\n\n", title, node.URL, node.Depth, text)
	}
	return strings.TrimSpace(b.String())
}
