// Package webhook provides the webhook action, a JSON POST of a structured
// payload to a configured endpoint.
package webhook

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
	// ErrURLMissing is returned when the url is missing from configuration.
	ErrURLMissing = errors.New("missing or invalid 'url' in configuration")
	// ErrWebhookStatus is returned when the receiver answers with a non-2xx status.
	ErrWebhookStatus = errors.New("webhook returned error status")
)

// Action delivers the configured payload to an external endpoint. The event
// envelope fields are merged in so receivers always know which server and
// execution produced the call.
type Action struct {
	URL     string
	Payload map[string]any
	Headers map[string]string

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, ErrURLMissing
	}

	payload, _ := config["payload"].(map[string]any)

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	return &Action{
		URL:     url,
		Payload: payload,
		Headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "webhook")
	logger.InfoContext(ctx, "Delivering webhook", "url", a.URL)

	body := map[string]any{
		"server_id":    executionCtx.ServerID,
		"workflow_id":  executionCtx.WorkflowID,
		"execution_id": executionCtx.ExecutionID,
		"event":        executionCtx.TriggerData,
	}

	for k, v := range a.Payload {
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrWebhookStatus)
	}

	logger.InfoContext(ctx, "Webhook delivered", "status_code", resp.StatusCode)

	return map[string]any{"status_code": resp.StatusCode}, nil
}

// ActionFactory creates webhook actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "webhook"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}
