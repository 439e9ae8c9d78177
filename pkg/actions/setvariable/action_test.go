package setvariable

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/models"
)

func TestActionSetsVariable(t *testing.T) {
	factory := NewActionFactory()
	assert.Equal(t, "set_variable", factory.ID())

	action, err := factory.Create(map[string]any{"name": "offender", "value": "Bob"})
	require.NoError(t, err)

	executionCtx := &models.ExecutionContext{}

	_, err = action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "Bob", executionCtx.Variables["offender"])
}

func TestActionOverwritesExisting(t *testing.T) {
	action, err := NewAction(map[string]any{"name": "count", "value": float64(2)})
	require.NoError(t, err)

	executionCtx := &models.ExecutionContext{Variables: map[string]any{"count": float64(1)}}

	_, err = action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, float64(2), executionCtx.Variables["count"])
}

func TestActionMissingName(t *testing.T) {
	_, err := NewAction(map[string]any{"value": "x"})
	assert.ErrorIs(t, err, ErrNameMissing)
}
