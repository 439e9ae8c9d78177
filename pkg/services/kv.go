package services

import (
	"context"
	"time"

	"github.com/wardenhq/warden/pkg/kv"
	"github.com/wardenhq/warden/pkg/models"
)

// KV exposes the workflow-scoped key-value store to the API. The same store
// backs lua_script kv_get/kv_set, so dashboard edits and scripts see one
// namespace per workflow.
type KV struct {
	store kv.Store
}

func NewKV(store kv.Store) *KV {
	return &KV{store: store}
}

func (s *KV) Get(ctx context.Context, workflowID, key string) (any, bool, error) {
	if key == "" {
		return nil, false, ErrKeyRequired
	}

	return s.store.Get(ctx, workflowID, key)
}

// Set writes a value, optionally with an expiry. Zero ttlSeconds means the
// entry never expires.
func (s *KV) Set(ctx context.Context, workflowID, key string, value any, ttlSeconds int) error {
	if key == "" {
		return ErrKeyRequired
	}

	if ttlSeconds < 0 {
		return ErrInvalidTTL
	}

	if ttlSeconds > 0 {
		return s.store.SetWithTTL(ctx, workflowID, key, value, time.Duration(ttlSeconds)*time.Second)
	}

	return s.store.Set(ctx, workflowID, key, value)
}

func (s *KV) Delete(ctx context.Context, workflowID, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	return s.store.Delete(ctx, workflowID, key)
}

func (s *KV) List(ctx context.Context, workflowID string) ([]models.KVEntry, error) {
	return s.store.List(ctx, workflowID)
}
