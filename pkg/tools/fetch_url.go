package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/scout/pkg/llm"
	"github.com/kadirpekel/scout/pkg/research"
)

const summarizeInstruction = "Summarize the following web page content concisely. " +
	"Keep concrete facts, numbers and names; drop navigation and boilerplate."

// FetchURLTool fetches one or more pages and returns their readable text.
// Pages are addressed either by URL or by link IDs minted by extract_links.
// With summarize set, each page's text is condensed by the summary model
// before being returned.
type FetchURLTool struct {
	engine     *research.Engine
	summarizer *llm.Summarizer
	links      *LinkIndex
	maxChars   int
	summarize  bool
}

type fetchURLArgs struct {
	URLs      []string `json:"urls,omitempty" jsonschema:"description=URLs to fetch content from"`
	LinkIDs   []int    `json:"link_ids,omitempty" jsonschema:"description=Link IDs previously returned by extract_links"`
	Summarize *bool    `json:"summarize,omitempty" jsonschema:"description=If true summarize each page instead of returning full text"`
}

type fetchedPage struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewFetchURLTool wraps engine. links resolves link_ids arguments; maxChars
// caps each page's returned text; defaultSummarize applies when the model
// does not pass its own summarize flag.
func NewFetchURLTool(engine *research.Engine, summarizer *llm.Summarizer, links *LinkIndex, maxChars int, defaultSummarize bool) *FetchURLTool {
	if maxChars <= 0 {
		maxChars = 50000
	}
	return &FetchURLTool{
		engine:     engine,
		summarizer: summarizer,
		links:      links,
		maxChars:   maxChars,
		summarize:  defaultSummarize,
	}
}

func (t *FetchURLTool) Name() string { return "fetch_url" }

func (t *FetchURLTool) Description() string {
	return "Fetch one or more URLs and return their readable text content (HTML stripped). Pass several URLs at once to fetch pages efficiently. Accepts link_ids from a previous extract_links call instead of URLs."
}

func (t *FetchURLTool) Schema() map[string]interface{} {
	return schemaFor(&fetchURLArgs{})
}

func (t *FetchURLTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params fetchURLArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}

	if len(params.URLs) > 0 && len(params.LinkIDs) > 0 {
		return failure(FailureInvalidArguments, "provide either 'urls' or 'link_ids', not both"), nil
	}

	urls := params.URLs
	if len(params.LinkIDs) > 0 {
		urls = t.links.URLs(params.LinkIDs)
		if len(urls) == 0 {
			return failure(FailureInvalidArguments, "no valid URLs found for link IDs %v", params.LinkIDs), nil
		}
	}
	if len(urls) == 0 {
		return failure(FailureInvalidArguments, "provide either 'urls' or 'link_ids'"), nil
	}

	summarize := t.summarize
	if params.Summarize != nil {
		summarize = *params.Summarize
	}

	pages := make([]fetchedPage, 0, len(urls))
	for _, rawURL := range urls {
		pages = append(pages, t.fetchPage(ctx, rawURL, summarize))
	}
	return jsonPayload(pages), nil
}

// fetchPage never fails the whole call: a bad URL among several becomes an
// error entry in the payload so the model can work with the rest.
func (t *FetchURLTool) fetchPage(ctx context.Context, rawURL string, summarize bool) fetchedPage {
	doc, cached, err := t.engine.Fetch(ctx, rawURL)
	if err != nil {
		return fetchedPage{URL: rawURL, Error: err.Error()}
	}

	page := fetchedPage{URL: rawURL, Title: doc.Title, Cached: cached}
	text := doc.Text
	if summarize && t.summarizer != nil {
		summary, err := t.summarizer.Summarize(ctx, summarizeInstruction, text)
		if err == nil {
			page.Content = fmt.Sprintf("Summary of %s:\n%s", rawURL, summary)
			return page
		}
		// fall back to the raw text when the summary model is down
	}
	if len(text) > t.maxChars {
		text = text[:t.maxChars] + "\n[truncated]"
	}
	page.Content = strings.TrimSpace(text)
	return page
}
