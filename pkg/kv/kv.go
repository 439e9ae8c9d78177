// Package kv provides the workflow-scoped persistent key-value store. Entries
// survive executions and are shared by concurrent executions of the same
// workflow; writes are last-write-wins with no built-in locking.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/wardenhq/warden/pkg/models"
)

var ErrKeyEmpty = errors.New("kv key cannot be empty")

// Store is the persistent KV capability. Set never expires an entry;
// SetWithTTL lets callers opt into expiry.
type Store interface {
	Get(ctx context.Context, workflowID, key string) (any, bool, error)
	Set(ctx context.Context, workflowID, key string, value any) error
	SetWithTTL(ctx context.Context, workflowID, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, workflowID, key string) error
	List(ctx context.Context, workflowID string) ([]models.KVEntry, error)
	Close() error
}
