package httprequest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/models"
)

func TestActionGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"online": 42})
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), &models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, result["status_code"])

	body, ok := result["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), body["online"])
}

func TestActionPostWithBodyAndHeaders(t *testing.T) {
	var receivedBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&receivedBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   `{"player":"Bob"}`,
		"headers": map[string]any{
			"Content-Type":  "application/json",
			"Authorization": "Bearer token-1",
		},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), &models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "Bob", receivedBody["player"])

	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, result["status_code"])
}

func TestActionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), &models.ExecutionContext{}, slog.Default())
	require.ErrorIs(t, err, ErrHTTPStatus)

	// the response is still captured for the step log
	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, result["status_code"])
}

func TestActionTransportError(t *testing.T) {
	action, err := NewAction(map[string]any{"url": "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), &models.ExecutionContext{}, slog.Default())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHTTPStatus)
}

func TestActionMissingURL(t *testing.T) {
	_, err := NewAction(map[string]any{"method": "GET"})
	assert.ErrorIs(t, err, ErrURLMissing)
}

func TestFactoryID(t *testing.T) {
	assert.Equal(t, "http_request", NewActionFactory().ID())
}
