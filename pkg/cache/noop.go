package cache

import (
	"context"
	"time"
)

// Noop is an always-miss store. It stands in for the real cache when the
// database cannot be opened or caching is disabled, so research keeps
// working without persistence.
type Noop struct{}

// NewNoop returns a store that never hits and never fails.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (n *Noop) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (n *Noop) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (n *Noop) Close() error {
	return nil
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*Noop)(nil)
)
