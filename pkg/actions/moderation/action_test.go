package moderation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

type fakeModeration struct {
	requests []protocol.BanRequest
	failWith error
}

func (f *fakeModeration) Ban(_ context.Context, req protocol.BanRequest) error {
	if f.failWith != nil {
		return f.failWith
	}

	f.requests = append(f.requests, req)

	return nil
}

func testExecutionContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		ServerID:    "server-1",
		TriggerData: map[string]any{
			"event_type":  "TEAM_KILL",
			"player_name": "Bob",
			"steam_id":    "76561198000000001",
		},
	}
}

func TestBanPlayerAction(t *testing.T) {
	backend := &fakeModeration{}

	factory := NewBanPlayerFactory(backend)
	assert.Equal(t, "ban_player", factory.ID())

	action, err := factory.Create(map[string]any{
		"player_id":        "76561198000000001",
		"reason":           "team killing",
		"duration_minutes": float64(1440),
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), testExecutionContext(), slog.Default())
	require.NoError(t, err)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "server-1", req.ServerID)
	assert.Equal(t, "76561198000000001", req.PlayerID)
	assert.Equal(t, "team killing", req.Reason)
	assert.Equal(t, 1440, req.DurationMinutes)
	assert.Equal(t, "workflow:wf-1", req.IssuedBy)
	assert.Nil(t, req.Evidence)

	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, result["permanent"])
}

func TestBanPlayerWithEvidenceAttachesTriggerData(t *testing.T) {
	backend := &fakeModeration{}

	factory := NewBanPlayerWithEvidenceFactory(backend)
	assert.Equal(t, "ban_player_with_evidence", factory.ID())

	action, err := factory.Create(map[string]any{
		"player_id": "76561198000000001",
		"reason":    "chat abuse",
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testExecutionContext(), slog.Default())
	require.NoError(t, err)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	require.NotNil(t, req.Evidence)
	assert.Equal(t, "TEAM_KILL", req.Evidence["event_type"])
	assert.Equal(t, "Bob", req.Evidence["player_name"])
	assert.Equal(t, 0, req.DurationMinutes) // permanent by default
}

func TestBanPlayerActionConfigErrors(t *testing.T) {
	factory := NewBanPlayerFactory(&fakeModeration{})

	_, err := factory.Create(map[string]any{"reason": "x"})
	assert.ErrorIs(t, err, ErrPlayerIDMissing)

	_, err = factory.Create(map[string]any{"player_id": "p1"})
	assert.ErrorIs(t, err, ErrReasonMissing)
}

func TestBanPlayerActionBackendFailure(t *testing.T) {
	backend := &fakeModeration{failWith: errors.New("backend down")}

	action, err := NewBanPlayerFactory(backend).Create(map[string]any{
		"player_id": "p1",
		"reason":    "spam",
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testExecutionContext(), slog.Default())
	assert.Error(t, err)
}
