// Package logmessage provides the log_message action, appending a free-text
// entry to the execution's message stream.
package logmessage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

// ErrMessageMissing is returned when no message is configured.
var ErrMessageMissing = errors.New("missing or invalid 'message' in configuration")

// Action appends one LogMessage through the injected sink.
type Action struct {
	sink    protocol.MessageSink
	Message string
	Level   models.LogLevel
}

func NewAction(sink protocol.MessageSink, config map[string]any) (*Action, error) {
	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, ErrMessageMissing
	}

	level := models.LogLevelInfo

	if raw, ok := config["level"].(string); ok {
		switch models.LogLevel(raw) {
		case models.LogLevelDebug, models.LogLevelInfo, models.LogLevelWarn, models.LogLevelError:
			level = models.LogLevel(raw)
		default:
			return nil, fmt.Errorf("unknown log level %q", raw)
		}
	}

	return &Action{sink: sink, Message: message, Level: level}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "log_message")
	logger.DebugContext(ctx, "Appending log message", "level", a.Level)

	entry := &models.LogMessage{
		ID:          uuid.New().String(),
		ExecutionID: executionCtx.ExecutionID,
		StepID:      executionCtx.StepID,
		StepName:    executionCtx.StepName,
		LogTime:     time.Now().UTC(),
		Level:       a.Level,
		Message:     a.Message,
		Variables:   maps.Clone(executionCtx.Variables),
	}

	err := a.sink.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append log message: %w", err)
	}

	return map[string]any{"message_id": entry.ID}, nil
}

// ActionFactory creates log_message actions.
type ActionFactory struct {
	sink protocol.MessageSink
}

func NewActionFactory(sink protocol.MessageSink) *ActionFactory {
	return &ActionFactory{sink: sink}
}

func (*ActionFactory) ID() string {
	return "log_message"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.sink, config)
}
