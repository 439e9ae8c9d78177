// Package console implements the actions that talk to the game server's
// admin console: rcon_command, admin_broadcast, chat_message, kick_player
// and warn_player. The wire protocol is abstracted behind protocol.Console.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

var (
	// ErrCommandMissing is returned when rcon_command has no command configured.
	ErrCommandMissing = errors.New("missing or invalid 'command' in configuration")
	// ErrMessageMissing is returned when a message action has no message configured.
	ErrMessageMissing = errors.New("missing or invalid 'message' in configuration")
	// ErrPlayerIDMissing is returned when a player-targeted action has no player_id.
	ErrPlayerIDMissing = errors.New("missing or invalid 'player_id' in configuration")
)

// RconCommandAction runs a raw console command and records its response.
type RconCommandAction struct {
	console protocol.Console
	Command string
}

func NewRconCommandAction(console protocol.Console, config map[string]any) (*RconCommandAction, error) {
	command, ok := config["command"].(string)
	if !ok || command == "" {
		return nil, ErrCommandMissing
	}

	return &RconCommandAction{console: console, Command: command}, nil
}

func (a *RconCommandAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "rcon_command")
	logger.InfoContext(ctx, "Executing console command", "command", a.Command)

	response, err := a.console.Exec(ctx, executionCtx.ServerID, a.Command)
	if err != nil {
		return nil, fmt.Errorf("console command failed: %w", err)
	}

	return map[string]any{"response": response}, nil
}

// AdminBroadcastAction shows a message to every connected player.
type AdminBroadcastAction struct {
	console protocol.Console
	Message string
}

func NewAdminBroadcastAction(console protocol.Console, config map[string]any) (*AdminBroadcastAction, error) {
	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, ErrMessageMissing
	}

	return &AdminBroadcastAction{console: console, Message: message}, nil
}

func (a *AdminBroadcastAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "admin_broadcast")
	logger.InfoContext(ctx, "Broadcasting message")

	err := a.console.Broadcast(ctx, executionCtx.ServerID, a.Message)
	if err != nil {
		return nil, fmt.Errorf("broadcast failed: %w", err)
	}

	return map[string]any{"message": a.Message}, nil
}

// ChatMessageAction sends a chat message to one player.
type ChatMessageAction struct {
	console  protocol.Console
	PlayerID string
	Message  string
}

func NewChatMessageAction(console protocol.Console, config map[string]any) (*ChatMessageAction, error) {
	playerID, ok := config["player_id"].(string)
	if !ok || playerID == "" {
		return nil, ErrPlayerIDMissing
	}

	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, ErrMessageMissing
	}

	return &ChatMessageAction{console: console, PlayerID: playerID, Message: message}, nil
}

func (a *ChatMessageAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "chat_message")
	logger.InfoContext(ctx, "Sending chat message", "player_id", a.PlayerID)

	err := a.console.Message(ctx, executionCtx.ServerID, a.PlayerID, a.Message)
	if err != nil {
		return nil, fmt.Errorf("chat message failed: %w", err)
	}

	return map[string]any{"player_id": a.PlayerID, "message": a.Message}, nil
}

// KickPlayerAction removes a player from the server.
type KickPlayerAction struct {
	console  protocol.Console
	PlayerID string
	Reason   string
}

func NewKickPlayerAction(console protocol.Console, config map[string]any) (*KickPlayerAction, error) {
	playerID, ok := config["player_id"].(string)
	if !ok || playerID == "" {
		return nil, ErrPlayerIDMissing
	}

	reason, _ := config["reason"].(string)

	return &KickPlayerAction{console: console, PlayerID: playerID, Reason: reason}, nil
}

func (a *KickPlayerAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "kick_player")
	logger.InfoContext(ctx, "Kicking player", "player_id", a.PlayerID, "reason", a.Reason)

	err := a.console.Kick(ctx, executionCtx.ServerID, a.PlayerID, a.Reason)
	if err != nil {
		return nil, fmt.Errorf("kick failed: %w", err)
	}

	return map[string]any{"player_id": a.PlayerID, "reason": a.Reason}, nil
}

// WarnPlayerAction issues an on-screen warning to one player.
type WarnPlayerAction struct {
	console  protocol.Console
	PlayerID string
	Message  string
}

func NewWarnPlayerAction(console protocol.Console, config map[string]any) (*WarnPlayerAction, error) {
	playerID, ok := config["player_id"].(string)
	if !ok || playerID == "" {
		return nil, ErrPlayerIDMissing
	}

	message, ok := config["message"].(string)
	if !ok || message == "" {
		return nil, ErrMessageMissing
	}

	return &WarnPlayerAction{console: console, PlayerID: playerID, Message: message}, nil
}

func (a *WarnPlayerAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "warn_player")
	logger.InfoContext(ctx, "Warning player", "player_id", a.PlayerID)

	err := a.console.Warn(ctx, executionCtx.ServerID, a.PlayerID, a.Message)
	if err != nil {
		return nil, fmt.Errorf("warn failed: %w", err)
	}

	return map[string]any{"player_id": a.PlayerID, "message": a.Message}, nil
}
