package webpage

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Page is the immutable result of extracting one HTML document.
type Page struct {
	Title string
	Text  string
	Links []Link
}

// Link is an anchor found during extraction. URL is absolute, resolved
// against the page base.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Elements whose subtrees carry no readable content.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"nav":      true,
	"footer":   true,
	"header":   true,
}

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[^\S\n]{2,}`)
)

// extractor is the parse state for one walk. Page text and links accumulate
// in separate fields, so loose text around an anchor can never end up in the
// link list and anchor targets never leak into the text.
type extractor struct {
	base  *url.URL
	text  strings.Builder
	title string
	links []Link
	seen  map[string]bool
}

// Extract parses HTML from r and returns the page's visible text and its
// outbound links. Links are absolute, deduplicated by normalized URL with
// first occurrence winning, in document order.
func Extract(base *url.URL, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	ex := &extractor{
		base: base,
		seen: make(map[string]bool),
	}
	ex.walk(doc, 0)

	return &Page{
		Title: ex.title,
		Text:  cleanText(ex.text.String()),
		Links: ex.links,
	}, nil
}

func (ex *extractor) walk(n *html.Node, depth int) {
	if depth > 100 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			ex.text.WriteString(text)
			ex.text.WriteString(" ")
		}

	case html.ElementNode:
		if skipElements[n.Data] {
			return
		}
		switch n.Data {
		case "title":
			if ex.title == "" {
				ex.title = nodeText(n)
			}
			return
		case "h1":
			ex.text.WriteString("\n\n# ")
		case "h2":
			ex.text.WriteString("\n\n## ")
		case "h3":
			ex.text.WriteString("\n\n### ")
		case "h4", "h5", "h6":
			ex.text.WriteString("\n\n#### ")
		case "p", "div", "section", "article", "tr":
			ex.text.WriteString("\n\n")
		case "br":
			ex.text.WriteString("\n")
		case "li":
			ex.text.WriteString("\n- ")
		case "pre":
			ex.text.WriteString("\n\n```\n")
		case "code":
			ex.text.WriteString("`")
		case "a":
			ex.collectLink(n)
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				ex.text.WriteString("[Image: " + alt + "] ")
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ex.walk(c, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			ex.text.WriteString("\n\n")
		case "pre":
			ex.text.WriteString("\n```\n\n")
		case "code":
			ex.text.WriteString("`")
		}
	}
}

// collectLink records the anchor's target and label. The anchor's text still
// flows into the page text through the normal child walk; only the (text,
// URL) pair is stored here.
func (ex *extractor) collectLink(n *html.Node) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return
	}

	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	if ex.base != nil {
		ref = ex.base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return
	}

	normalized, err := NormalizeURL(ref.String())
	if err != nil || ex.seen[normalized] {
		return
	}
	ex.seen[normalized] = true

	ex.links = append(ex.links, Link{
		Text: nodeText(n),
		URL:  ref.String(),
	})
}

// NormalizeURL canonicalizes a URL for visited-set and cache-key comparison:
// lowercased scheme and host, default ports stripped, fragment dropped, query
// parameters sorted. Two spellings of the same resource normalize equal.
func NormalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing scheme or host", raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	normalized := scheme + "://" + host + path
	if parsed.RawQuery != "" {
		normalized += "?" + sortQuery(parsed.RawQuery)
	}
	return normalized, nil
}

func sortQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := values[k]
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// cleanText collapses runs of blank lines and interior spaces left behind by
// the walk.
func cleanText(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
