package protocol

import (
	"context"

	"github.com/wardenhq/warden/pkg/models"
)

// MessageSink appends to an execution's free-text log stream. Lua script
// log() bindings and the log_message action write through it.
type MessageSink interface {
	Append(ctx context.Context, message *models.LogMessage) error
}

// KVStore is the workflow-scoped persistent key-value capability exposed to
// actions (lua_script in particular). Values are JSON-like; last write wins.
type KVStore interface {
	Get(ctx context.Context, workflowID, key string) (any, bool, error)
	Set(ctx context.Context, workflowID, key string, value any) error
	Delete(ctx context.Context, workflowID, key string) error
}
