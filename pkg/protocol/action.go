// Package protocol defines the interfaces between the engine and its
// injected capabilities: actions, the game-server console, the moderation
// backend and the execution message stream.
package protocol

import (
	"context"
	"log/slog"

	"github.com/wardenhq/warden/pkg/models"
)

// Action is one executable side effect. Execute receives the fully
// template-resolved configuration through the factory and the live execution
// state; it returns the action output to record as step_output.
type Action interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory creates Action instances from raw step params.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
}

// ResultStatus classifies a dispatch outcome.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
)

// Result is the dispatcher's uniform return value. Transport failures and
// semantic failures (an HTTP 4xx, a rejected RCON command) both land here,
// distinguished by the Error detail.
type Result struct {
	Status ResultStatus `json:"status"`
	Output any          `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
}
