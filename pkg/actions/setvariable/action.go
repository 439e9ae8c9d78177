// Package setvariable provides the set_variable action, writing a value into
// the execution's variable store.
package setvariable

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

// ErrNameMissing is returned when no variable name is configured.
var ErrNameMissing = errors.New("missing or invalid 'name' in configuration")

// Action sets one execution-scoped variable. The value reaches the action
// already template-resolved, so dynamic values come from the event payload or
// earlier step results.
type Action struct {
	Name  string
	Value any
}

func NewAction(config map[string]any) (*Action, error) {
	name, ok := config["name"].(string)
	if !ok || name == "" {
		return nil, ErrNameMissing
	}

	return &Action{Name: name, Value: config["value"]}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "set_variable")
	logger.DebugContext(ctx, "Setting variable", "name", a.Name)

	if executionCtx.Variables == nil {
		executionCtx.Variables = make(map[string]any)
	}

	executionCtx.Variables[a.Name] = a.Value

	return map[string]any{"name": a.Name, "value": a.Value}, nil
}

// ActionFactory creates set_variable actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "set_variable"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
