package research

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/webpage"
)

// diveSite serves a small fixed link graph and counts fetches per path.
//
//	/        -> /a /b
//	/a       -> /c (plus a /c#section duplicate)
//	/b       -> /c /missing
//	/c       -> /d
//	/missing -> 404
func diveSite(t *testing.T) (*httptest.Server, func(path string) int) {
	t.Helper()

	var mu sync.Mutex
	counts := make(map[string]int)

	pages := map[string]string{
		"/":  `<html><body><a href="/a">A</a> <a href="/b">B</a></body></html>`,
		"/a": `<html><body><p>page a</p><a href="/c">C</a> <a href="/c#section">C again</a></body></html>`,
		"/b": `<html><body><p>page b</p><a href="/c">C</a> <a href="/missing">gone</a></body></html>`,
		"/c": `<html><head><title>C</title></head><body><p>page c</p><a href="/d">D</a></body></html>`,
		"/d": `<html><body><p>page d</p></body></html>`,
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		counts[r.URL.Path]++
		mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	return ts, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return counts[path]
	}
}

func diveEngine(t *testing.T, cfg *config.ResearchConfig) *Engine {
	t.Helper()

	engine, err := New(Options{
		Search:  &stubSearch{},
		Fetcher: testFetcher(t),
		Config:  cfg,
	})
	require.NoError(t, err)
	return engine
}

func nodeURLs(nodes []CrawlNode) []string {
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, n.URL)
	}
	return urls
}

func TestDeepDive_BreadthFirstWithDedup(t *testing.T) {
	ts, fetches := diveSite(t)
	engine := diveEngine(t, &config.ResearchConfig{DiveWorkers: 2, MaxPages: 25})

	report, err := engine.DeepDive(context.Background(), ts.URL+"/", 3)
	require.NoError(t, err)

	// Level 0: seed. Level 1: /a /b. Level 2: /c once plus the failed
	// /missing. /d is first discovered at level 3 and never fetched.
	want := []string{
		ts.URL + "/",
		ts.URL + "/a", ts.URL + "/b",
		ts.URL + "/c", ts.URL + "/missing",
	}
	assert.Equal(t, want, nodeURLs(report.Nodes))

	for path, wantCount := range map[string]int{"/": 1, "/a": 1, "/b": 1, "/c": 1, "/d": 0} {
		assert.Equal(t, wantCount, fetches(path), "fetch count for %s", path)
	}

	byURL := make(map[string]CrawlNode)
	for _, n := range report.Nodes {
		byURL[n.URL] = n
	}

	missing := byURL[ts.URL+"/missing"]
	assert.Equal(t, StatusFailed, missing.Status)
	assert.NotEmpty(t, missing.Err)
	assert.Empty(t, missing.Links)

	c := byURL[ts.URL+"/c"]
	assert.Equal(t, StatusFetched, c.Status)
	assert.Equal(t, 2, c.Depth)

	assert.Contains(t, report.Text, "page c")
	assert.NotContains(t, report.Text, "page d")
}

func TestDeepDive_DepthOneFetchesOnlySeed(t *testing.T) {
	ts, fetches := diveSite(t)
	engine := diveEngine(t, &config.ResearchConfig{DiveWorkers: 2, MaxPages: 25})

	report, err := engine.DeepDive(context.Background(), ts.URL+"/", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{ts.URL + "/"}, nodeURLs(report.Nodes))
	assert.Equal(t, 0, fetches("/a"))
	assert.Equal(t, 0, fetches("/b"))
}

func TestDeepDive_MaxPagesCapsTheCrawl(t *testing.T) {
	ts, _ := diveSite(t)
	engine := diveEngine(t, &config.ResearchConfig{DiveWorkers: 2, MaxPages: 2})

	report, err := engine.DeepDive(context.Background(), ts.URL+"/", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{ts.URL + "/", ts.URL + "/a"}, nodeURLs(report.Nodes))
}

func TestDeepDive_InvalidSeed(t *testing.T) {
	engine := diveEngine(t, nil)

	_, err := engine.DeepDive(context.Background(), "not a url", 2)
	var fetchErr *webpage.FetchFailedError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestSynthesizeDive_SkipsFailedAndCapsText(t *testing.T) {
	long := make([]byte, nodeTextCap+100)
	for i := range long {
		long[i] = 'x'
	}

	text := synthesizeDive([]CrawlNode{
		{URL: "https://a.test", Status: StatusFetched, Title: "A", Text: string(long), Depth: 0},
		{URL: "https://b.test", Status: StatusFailed, Err: "404"},
	})

	assert.Contains(t, text, "## A (https://a.test, depth 0)")
	assert.Contains(t, text, "[truncated]")
	assert.NotContains(t, text, "b.test")
}
