// Package moderation implements the ban_player and ban_player_with_evidence
// actions over the injected moderation backend.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

var (
	// ErrPlayerIDMissing is returned when no player_id is configured.
	ErrPlayerIDMissing = errors.New("missing or invalid 'player_id' in configuration")
	// ErrReasonMissing is returned when no ban reason is configured.
	ErrReasonMissing = errors.New("missing or invalid 'reason' in configuration")
)

// BanPlayerAction bans a player for a configured duration. With
// attachEvidence set, the triggering event payload is attached to the ban
// record so moderators can see what the workflow reacted to.
type BanPlayerAction struct {
	moderation      protocol.Moderation
	PlayerID        string
	Reason          string
	DurationMinutes int
	attachEvidence  bool
}

func NewBanPlayerAction(moderation protocol.Moderation, config map[string]any, attachEvidence bool) (*BanPlayerAction, error) {
	playerID, ok := config["player_id"].(string)
	if !ok || playerID == "" {
		return nil, ErrPlayerIDMissing
	}

	reason, ok := config["reason"].(string)
	if !ok || reason == "" {
		return nil, ErrReasonMissing
	}

	duration := 0
	switch v := config["duration_minutes"].(type) {
	case float64:
		duration = int(v)
	case int:
		duration = v
	}

	if duration < 0 {
		duration = 0
	}

	return &BanPlayerAction{
		moderation:      moderation,
		PlayerID:        playerID,
		Reason:          reason,
		DurationMinutes: duration,
		attachEvidence:  attachEvidence,
	}, nil
}

func (a *BanPlayerAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", a.actionType())
	logger.InfoContext(ctx, "Banning player",
		"player_id", a.PlayerID,
		"duration_minutes", a.DurationMinutes,
	)

	req := protocol.BanRequest{
		ServerID:        executionCtx.ServerID,
		PlayerID:        a.PlayerID,
		Reason:          a.Reason,
		DurationMinutes: a.DurationMinutes,
		IssuedBy:        "workflow:" + executionCtx.WorkflowID,
		IssuedAt:        time.Now().UTC(),
	}

	if a.attachEvidence {
		req.Evidence = executionCtx.TriggerData
	}

	err := a.moderation.Ban(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ban failed: %w", err)
	}

	return map[string]any{
		"player_id":        a.PlayerID,
		"reason":           a.Reason,
		"duration_minutes": a.DurationMinutes,
		"permanent":        a.DurationMinutes == 0,
	}, nil
}

func (a *BanPlayerAction) actionType() string {
	if a.attachEvidence {
		return "ban_player_with_evidence"
	}

	return "ban_player"
}
