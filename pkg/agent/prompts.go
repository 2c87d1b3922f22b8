package agent

import (
	"fmt"
	"strings"
)

const basePrompt = `You are scout, a research assistant running in a terminal.
Answer the user's question accurately and concisely, in Markdown.

You have tools for web search, fetching pages, extracting links and running
local shell commands. Use them whenever the answer depends on current
information, local state, or anything you are not certain about. Prefer
checking over guessing. Cite source URLs for facts you found on the web.

When a tool fails, read the error, adjust the arguments and try a different
approach instead of repeating the same call.`

const forceSearchDirective = `The user asked for a web-backed answer: call
web_search at least once before answering, even if you believe you already
know the answer.`

const deepDiveDirective = `The user asked for a deep dive: use the deep_dive
tool on the most relevant URL (from the question or from a first web search)
before answering, and ground the answer in the crawled content.`

const finalTurnDirective = `This is the final turn; tools are no longer
available. Produce your best complete answer from the information gathered
above. If the information is insufficient, say so explicitly and summarize
what was found.`

func deepResearchDirective(rounds int) string {
	return fmt.Sprintf(`The user asked for deep research: call the
deep_research tool with the core question (it runs up to %d refined search
rounds) and build the answer from its merged results, fetching the most
promising URLs for detail.`, rounds)
}

// systemPrompt assembles the system message for this invocation: the base
// prompt, mode directives, optional prompt aliases expanded by the CLI, and
// the per-turn status line.
func systemPrompt(opts RunOptions, status string) string {
	parts := []string{basePrompt}

	if opts.ForceSearch {
		parts = append(parts, forceSearchDirective)
	}
	if opts.DeepResearch > 0 {
		parts = append(parts, deepResearchDirective(opts.DeepResearch))
	}
	if opts.DeepDive {
		parts = append(parts, deepDiveDirective)
	}
	if opts.SystemSuffix != "" {
		parts = append(parts, opts.SystemSuffix)
	}
	if status != "" {
		parts = append(parts, status)
	}

	return strings.Join(parts, "\n\n")
}
