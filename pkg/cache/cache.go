// Package cache provides the research cache: a key/value store with
// per-entry expiry that backs web search results and fetched pages so
// repeated research rounds do not refetch the same material.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is the cache contract. Get reports a miss for entries that are
// absent or past their expiry; expired rows stay eligible for
// CleanupExpired until removed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CleanupExpired(ctx context.Context) (int64, error)
	Close() error
}

// Key builds a namespaced cache key from a kind ("search", "page") and the
// raw lookup input. Callers normalize the input first (search.Normalize for
// queries, webpage.NormalizeURL for URLs) so equivalent spellings share an
// entry.
func Key(kind, raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return kind + ":" + hex.EncodeToString(sum[:])[:16]
}
