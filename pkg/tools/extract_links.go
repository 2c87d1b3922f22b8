package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/scout/pkg/research"
)

// ExtractLinksTool fetches a page and lists its links with stable numeric
// IDs. The model follows up with fetch_url link_ids instead of copying
// URLs back, which keeps tool calls short and immune to URL typos.
type ExtractLinksTool struct {
	engine *research.Engine
	links  *LinkIndex
}

type extractLinksArgs struct {
	URL string `json:"url" jsonschema:"required,description=The page to fetch and extract links from"`
}

// NewExtractLinksTool wraps engine, registering extracted links in links.
func NewExtractLinksTool(engine *research.Engine, links *LinkIndex) *ExtractLinksTool {
	return &ExtractLinksTool{engine: engine, links: links}
}

func (t *ExtractLinksTool) Name() string { return "extract_links" }

func (t *ExtractLinksTool) Description() string {
	return "Fetch a page and return its text content plus a numbered list of its links. Use the link numbers with fetch_url's link_ids to follow links."
}

func (t *ExtractLinksTool) Schema() map[string]interface{} {
	return schemaFor(&extractLinksArgs{})
}

func (t *ExtractLinksTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	var params extractLinksArgs
	if err := decodeArgs(args, &params); err != nil {
		return failure(FailureInvalidArguments, "%v", err), nil
	}
	if params.URL == "" {
		return failure(FailureInvalidArguments, "url is required"), nil
	}

	doc, _, err := t.engine.Fetch(ctx, params.URL)
	if err != nil {
		return failure(FailureFetchFailed, "%v", err), nil
	}

	ids := t.links.Add(doc.Links)

	var sb strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	}
	sb.WriteString(strings.TrimSpace(doc.Text))
	sb.WriteString("\n\nLinks:\n")
	if len(doc.Links) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, link := range doc.Links {
		text := strings.TrimSpace(link.Text)
		if text == "" {
			text = link.URL
		}
		fmt.Fprintf(&sb, "%d: %s\n", ids[i], text)
	}
	return success(sb.String()), nil
}
