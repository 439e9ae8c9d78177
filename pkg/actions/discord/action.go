// Package discord provides the discord_message action, posting to a Discord
// webhook URL.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/protocol"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrWebhookURLMissing is returned when webhook_url is missing from configuration.
	ErrWebhookURLMissing = errors.New("missing or invalid 'webhook_url' in configuration")
	// ErrContentMissing is returned when no message content is configured.
	ErrContentMissing = errors.New("missing or invalid 'content' in configuration")
	// ErrDiscordStatus is returned when Discord answers with a non-2xx status.
	ErrDiscordStatus = errors.New("discord webhook returned error status")
)

// Action posts a message to a Discord channel webhook.
type Action struct {
	WebhookURL string
	Content    string
	Username   string

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	webhookURL, ok := config["webhook_url"].(string)
	if !ok || webhookURL == "" {
		return nil, ErrWebhookURLMissing
	}

	content, ok := config["content"].(string)
	if !ok || content == "" {
		return nil, ErrContentMissing
	}

	username, _ := config["username"].(string)

	return &Action{
		WebhookURL: webhookURL,
		Content:    content,
		Username:   username,
		client:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "discord_message")
	logger.InfoContext(ctx, "Posting Discord message")

	payload := map[string]any{"content": a.Content}
	if a.Username != "" {
		payload["username"] = a.Username
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.WebhookURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create discord request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord delivery failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrDiscordStatus)
	}

	return map[string]any{"status_code": resp.StatusCode}, nil
}

// ActionFactory creates discord_message actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "discord_message"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
