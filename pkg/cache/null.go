package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. It backs --no-cache and runners created
// without a cache, so every generation runs from scratch.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that always misses.
func NewNullCache() *NullCache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
