package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/research"
	"github.com/kadirpekel/scout/pkg/search"
	"github.com/kadirpekel/scout/pkg/webpage"
)

type fixedSearch struct {
	hits []search.Hit
	err  error
}

func (s *fixedSearch) Search(ctx context.Context, query string, max int) ([]search.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s *fixedSearch) Name() string { return "fixed" }

func newTestEngine(t *testing.T, provider search.Provider) *research.Engine {
	t.Helper()

	fetcher := webpage.NewFetcher(&config.SearchConfig{Timeout: config.Duration(10 * time.Second)})
	engine, err := research.New(research.Options{
		Search:  provider,
		Fetcher: fetcher,
	})
	require.NoError(t, err)
	return engine
}

func TestWebSearchReturnsHits(t *testing.T) {
	provider := &fixedSearch{hits: []search.Hit{
		{Title: "Go", URL: "https://go.dev", Snippet: "the Go language"},
	}}
	tool := NewWebSearchTool(newTestEngine(t, provider), 5)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "golang"})
	require.NoError(t, err)
	require.False(t, result.Failed())

	var payload webSearchPayload
	require.NoError(t, json.Unmarshal([]byte(result.Content), &payload))
	require.Len(t, payload.Hits, 1)
	assert.Equal(t, "https://go.dev", payload.Hits[0].URL)
}

func TestWebSearchMissingQuery(t *testing.T) {
	tool := NewWebSearchTool(newTestEngine(t, &fixedSearch{}), 5)

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureInvalidArguments, result.Failure.Kind)
	assert.Contains(t, result.Failure.Message, "query")
}

func TestWebSearchBackendUnavailable(t *testing.T) {
	provider := &fixedSearch{err: fmt.Errorf("%w: 502", search.ErrBackendUnavailable)}
	tool := NewWebSearchTool(newTestEngine(t, provider), 5)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureSearchUnavailable, result.Failure.Kind)
}

func TestWebSearchWeaklyTypedMaxResults(t *testing.T) {
	provider := &fixedSearch{}
	tool := NewWebSearchTool(newTestEngine(t, provider), 5)

	// Models routinely send numbers as strings or floats.
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query":       "x",
		"max_results": "3",
	})
	require.NoError(t, err)
	assert.False(t, result.Failed())

	result, err = tool.Execute(context.Background(), map[string]interface{}{
		"query":       "x",
		"max_results": 3.0,
	})
	require.NoError(t, err)
	assert.False(t, result.Failed())
}

func TestFetchURLReturnsPageText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Sample</title></head><body><p>body text here</p></body></html>`)
	}))
	defer server.Close()

	tool := NewFetchURLTool(newTestEngine(t, &fixedSearch{}), nil, NewLinkIndex(), 0, false)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"urls": []string{server.URL},
	})
	require.NoError(t, err)
	require.False(t, result.Failed())

	var pages []fetchedPage
	require.NoError(t, json.Unmarshal([]byte(result.Content), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "Sample", pages[0].Title)
	assert.Contains(t, pages[0].Content, "body text here")
	assert.Empty(t, pages[0].Error)
}

func TestFetchURLBadPageAmongGoodOnes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>fine</body></html>`)
	}))
	defer server.Close()

	tool := NewFetchURLTool(newTestEngine(t, &fixedSearch{}), nil, NewLinkIndex(), 0, false)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"urls": []string{server.URL + "/ok", server.URL + "/missing"},
	})
	require.NoError(t, err)
	require.False(t, result.Failed(), "one bad page must not fail the whole call")

	var pages []fetchedPage
	require.NoError(t, json.Unmarshal([]byte(result.Content), &pages))
	require.Len(t, pages, 2)
	assert.Empty(t, pages[0].Error)
	assert.NotEmpty(t, pages[1].Error)
}

func TestFetchURLRejectsBothURLsAndLinkIDs(t *testing.T) {
	tool := NewFetchURLTool(newTestEngine(t, &fixedSearch{}), nil, NewLinkIndex(), 0, false)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"urls":     []string{"https://example.com"},
		"link_ids": []int{1},
	})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureInvalidArguments, result.Failure.Kind)
}

func TestExtractLinksNumbersLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<p>intro</p>
			<a href="/a">First</a>
			<a href="/b">Second</a>
			<a href="/a">First again</a>
		</body></html>`)
	}))
	defer server.Close()

	links := NewLinkIndex()
	engine := newTestEngine(t, &fixedSearch{})
	tool := NewExtractLinksTool(engine, links)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)
	require.False(t, result.Failed())

	assert.Contains(t, result.Content, "1: First")
	assert.Contains(t, result.Content, "2: Second")
	// The duplicate /a link reuses ID 1 instead of minting a new one.
	assert.Equal(t, 2, links.Len())

	// Link IDs resolve back to absolute URLs for fetch_url.
	urls := links.URLs([]int{1, 2})
	require.Len(t, urls, 2)
	assert.Equal(t, server.URL+"/a", urls[0])
	assert.Equal(t, server.URL+"/b", urls[1])
}

func TestLinkIndexStableAcrossPages(t *testing.T) {
	links := NewLinkIndex()

	first := links.Add([]webpage.Link{
		{URL: "https://example.com/a", Text: "A"},
		{URL: "https://example.com/b", Text: "B"},
	})
	assert.Equal(t, []int{1, 2}, first)

	// A later page repeating a URL gets the original ID back.
	second := links.Add([]webpage.Link{
		{URL: "https://example.com/b", Text: "B again"},
		{URL: "https://example.com/c", Text: "C"},
	})
	assert.Equal(t, []int{2, 3}, second)

	link, ok := links.Get(2)
	require.True(t, ok)
	assert.Equal(t, "B again", link.Text)
}

func TestDeepResearchToolMissingQuery(t *testing.T) {
	tool := NewDeepResearchTool(newTestEngine(t, &fixedSearch{}), 2)

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureInvalidArguments, result.Failure.Kind)
}

func TestDeepDiveToolInvalidSeed(t *testing.T) {
	tool := NewDeepDiveTool(newTestEngine(t, &fixedSearch{}), 2)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"url": "::not a url::"})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, FailureFetchFailed, result.Failure.Kind)
}
