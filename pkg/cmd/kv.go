package cmd

import (
	"context"
	"fmt"

	"github.com/wardenhq/warden/pkg/kv"
)

// NewKVStore returns the workflow KV backend: Redis when a URL is
// configured, in-memory otherwise. The in-memory store does not survive a
// restart, so it is only suitable for development.
func NewKVStore(ctx context.Context, redisURL string) kv.Store {
	if redisURL == "" {
		return kv.NewMemoryStore()
	}

	store, err := kv.NewRedisStore(ctx, redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to redis kv store: %w", err))
	}

	return store
}
