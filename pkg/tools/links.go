package tools

import (
	"sync"

	"github.com/kadirpekel/scout/pkg/webpage"
)

// LinkIndex numbers the links surfaced by extract_links so the model can
// refer to them by small integers instead of repeating long URLs. IDs are
// assigned in first-seen order and stay stable for the whole conversation;
// seeing a URL again reuses its ID but adopts the newest anchor text.
type LinkIndex struct {
	mu     sync.Mutex
	byURL  map[string]int
	byID   map[int]webpage.Link
	nextID int
}

// NewLinkIndex returns an empty index. The first link gets ID 1.
func NewLinkIndex() *LinkIndex {
	return &LinkIndex{
		byURL:  make(map[string]int),
		byID:   make(map[int]webpage.Link),
		nextID: 1,
	}
}

// Add indexes the links and returns their IDs in input order.
func (x *LinkIndex) Add(links []webpage.Link) []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]int, 0, len(links))
	for _, link := range links {
		id, seen := x.byURL[link.URL]
		if !seen {
			id = x.nextID
			x.nextID++
			x.byURL[link.URL] = id
		}
		x.byID[id] = link
		ids = append(ids, id)
	}
	return ids
}

// Get returns the link stored under id.
func (x *LinkIndex) Get(id int) (webpage.Link, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	link, ok := x.byID[id]
	return link, ok
}

// URLs resolves IDs to URLs, silently skipping IDs that were never
// assigned.
func (x *LinkIndex) URLs(ids []int) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		if link, ok := x.byID[id]; ok {
			urls = append(urls, link.URL)
		}
	}
	return urls
}

// Len returns the number of distinct URLs indexed.
func (x *LinkIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byID)
}
