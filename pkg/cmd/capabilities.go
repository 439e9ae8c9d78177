package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/protocol"
)

const (
	agentTimeout      = 10 * time.Second
	agentResponseSize = 64 * 1024
)

// ErrAgentStatus is returned when the game-server agent answers a command
// with a non-2xx status.
var ErrAgentStatus = errors.New("game-server agent returned error status")

// NewMessageSink adapts the execution repository into the message sink
// consumed by the log_message and lua_script actions.
func NewMessageSink(p persistence.Persistence) protocol.MessageSink {
	return &persistenceSink{executions: p.ExecutionRepository()}
}

type persistenceSink struct {
	executions persistence.ExecutionRepository
}

func (s *persistenceSink) Append(ctx context.Context, message *models.LogMessage) error {
	return s.executions.AppendLogMessage(ctx, message)
}

// NewConsole returns the game-server console capability. With an agent URL
// it talks to the HTTP agent deployed next to each game server; without one
// it degrades to a logging console so workflows stay runnable in
// development.
func NewConsole(logger *slog.Logger, agentURL string) protocol.Console {
	if agentURL == "" {
		return &logConsole{logger: logger.With("module", "console")}
	}

	return &agentConsole{
		baseURL: agentURL,
		client:  &http.Client{Timeout: agentTimeout},
	}
}

// NewModeration returns the ban backend capability, following the same
// agent-or-log split as NewConsole.
func NewModeration(logger *slog.Logger, agentURL string) protocol.Moderation {
	if agentURL == "" {
		return &logModeration{logger: logger.With("module", "moderation")}
	}

	return &agentModeration{
		baseURL: agentURL,
		client:  &http.Client{Timeout: agentTimeout},
	}
}

// agentConsole sends console commands to the HTTP agent colocated with the
// game server. The agent owns the actual server connection.
type agentConsole struct {
	baseURL string
	client  *http.Client
}

func (c *agentConsole) Exec(ctx context.Context, serverID, command string) (string, error) {
	return c.post(ctx, "/servers/"+serverID+"/exec", map[string]any{"command": command})
}

func (c *agentConsole) Broadcast(ctx context.Context, serverID, message string) error {
	_, err := c.post(ctx, "/servers/"+serverID+"/broadcast", map[string]any{"message": message})

	return err
}

func (c *agentConsole) Message(ctx context.Context, serverID, playerID, message string) error {
	_, err := c.post(ctx, "/servers/"+serverID+"/message", map[string]any{
		"player_id": playerID,
		"message":   message,
	})

	return err
}

func (c *agentConsole) Warn(ctx context.Context, serverID, playerID, reason string) error {
	_, err := c.post(ctx, "/servers/"+serverID+"/warn", map[string]any{
		"player_id": playerID,
		"reason":    reason,
	})

	return err
}

func (c *agentConsole) Kick(ctx context.Context, serverID, playerID, reason string) error {
	_, err := c.post(ctx, "/servers/"+serverID+"/kick", map[string]any{
		"player_id": playerID,
		"reason":    reason,
	})

	return err
}

func (c *agentConsole) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create agent request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, agentResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read agent response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("status %d: %w", resp.StatusCode, ErrAgentStatus)
	}

	return string(body), nil
}

type agentModeration struct {
	baseURL string
	client  *http.Client
}

func (m *agentModeration) Ban(ctx context.Context, ban protocol.BanRequest) error {
	data, err := json.Marshal(ban)
	if err != nil {
		return fmt.Errorf("failed to marshal ban request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/bans", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create ban request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ban request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrAgentStatus)
	}

	return nil
}

// logConsole records console commands instead of delivering them.
type logConsole struct {
	logger *slog.Logger
}

func (c *logConsole) Exec(ctx context.Context, serverID, command string) (string, error) {
	c.logger.InfoContext(ctx, "Console exec", "server_id", serverID, "command", command)

	return "", nil
}

func (c *logConsole) Broadcast(ctx context.Context, serverID, message string) error {
	c.logger.InfoContext(ctx, "Console broadcast", "server_id", serverID, "message", message)

	return nil
}

func (c *logConsole) Message(ctx context.Context, serverID, playerID, message string) error {
	c.logger.InfoContext(ctx, "Console message", "server_id", serverID, "player_id", playerID, "message", message)

	return nil
}

func (c *logConsole) Warn(ctx context.Context, serverID, playerID, reason string) error {
	c.logger.InfoContext(ctx, "Console warn", "server_id", serverID, "player_id", playerID, "reason", reason)

	return nil
}

func (c *logConsole) Kick(ctx context.Context, serverID, playerID, reason string) error {
	c.logger.InfoContext(ctx, "Console kick", "server_id", serverID, "player_id", playerID, "reason", reason)

	return nil
}

type logModeration struct {
	logger *slog.Logger
}

func (m *logModeration) Ban(ctx context.Context, ban protocol.BanRequest) error {
	m.logger.InfoContext(ctx, "Ban recorded",
		"server_id", ban.ServerID,
		"player_id", ban.PlayerID,
		"reason", ban.Reason,
		"duration_minutes", ban.DurationMinutes,
	)

	return nil
}
