package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/channels/gochannel"
	"github.com/wardenhq/warden/pkg/cmd"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/kv"
	"github.com/wardenhq/warden/pkg/persistence/file"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	logger := slog.Default()
	persistence := file.NewPersistence(t.TempDir())
	store := kv.NewMemoryStore()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	registry := cmd.NewRegistry(logger, cmd.NewConsole(logger, ""), cmd.NewModeration(logger, ""), cmd.NewMessageSink(persistence), store)

	return NewAPI(logger, persistence, registry, bus, store)
}

func TestAppServesBannerAndHealth(t *testing.T) {
	app := newTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Warden API", string(body))

	for _, path := range []string{"/health", "/livez", "/readyz"} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAppExposesMetrics(t *testing.T) {
	app := newTestAPI(t).App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestAppCreatesWorkflowEndToEnd(t *testing.T) {
	app := newTestAPI(t).App()

	payload := `{
		"name": "kick on connect",
		"enabled": true,
		"definition": {
			"version": 1,
			"triggers": [{"id": "t-1", "event_type": "LOG_PLAYER_CONNECTED", "enabled": true}],
			"steps": [{
				"id": "kick",
				"type": "action",
				"enabled": true,
				"config": {"action_type": "kick_player", "params": {"player_id": "{{ .trigger.steam_id }}"}}
			}]
		}
	}`

	req := httptest.NewRequest(http.MethodPost, "/servers/server-1/workflows", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
