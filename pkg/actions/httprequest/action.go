// Package httprequest provides the http_request action for workflow steps.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wardenhq/warden/pkg/models"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrURLMissing is returned when the url is missing from configuration.
	ErrURLMissing = errors.New("missing or invalid 'url' in configuration")
	// ErrHTTPStatus is returned when the endpoint answers with a 4xx or 5xx
	// status. Transport failures are reported as plain wrapped errors so the
	// two failure classes stay distinguishable.
	ErrHTTPStatus = errors.New("http request returned error status")
)

// Action performs one HTTP request. The configuration reaches the factory
// already template-resolved; retries are the step runner's concern.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration

	client *http.Client
}

// NewAction creates an http_request action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, ErrURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	timeout := defaultTimeout
	if ms, ok := config["timeout_ms"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Execute performs the HTTP request and returns the decoded response.
func (a *Action) Execute(ctx context.Context, _ *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "http_request")
	logger.InfoContext(ctx, "Executing HTTP request", "method", a.Method, "url", a.URL)

	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		logger.WarnContext(ctx, "HTTP request returned error status", "status_code", resp.StatusCode)

		return result, fmt.Errorf("status %d: %w", resp.StatusCode, ErrHTTPStatus)
	}

	logger.InfoContext(ctx, "HTTP request completed", "status_code", resp.StatusCode)

	return result, nil
}
