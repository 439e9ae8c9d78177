package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/channels/gochannel"
	"github.com/wardenhq/warden/pkg/events"
)

func TestNormalizeCanonicalEventPassesThrough(t *testing.T) {
	event, err := Normalize(events.EventChatMessage, "server-1", map[string]any{
		"message": "!admin camping in main",
	})

	require.NoError(t, err)
	assert.Equal(t, events.EventChatMessage, event.EventType)
	assert.Equal(t, "server-1", event.ServerID)
	assert.Equal(t, "!admin camping in main", event.Payload["message"])
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNormalizeResolvesAliases(t *testing.T) {
	tests := []struct {
		upstream  string
		canonical string
	}{
		{"PLAYER_CONNECTED", events.EventPlayerConnected},
		{"connected", events.EventPlayerConnected},
		{" teamkill ", events.EventTeamKill},
		{"chat", events.EventChatMessage},
		{"NEW_GAME", events.EventRoundEnded},
		{"possessed_admin_camera", events.EventAdminCamera},
	}

	for _, tt := range tests {
		event, err := Normalize(tt.upstream, "server-1", nil)

		require.NoError(t, err, tt.upstream)
		assert.Equal(t, tt.canonical, event.EventType, tt.upstream)
	}
}

func TestNormalizeRejectsUnknownEventType(t *testing.T) {
	_, err := Normalize("PLAYER_TELEPORTED", "server-1", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestNormalizeRejectsMissingServerID(t *testing.T) {
	_, err := Normalize(events.EventChatMessage, "  ", nil)

	assert.ErrorIs(t, err, ErrServerIDMissing)
}

func TestScheduleSourceValidatesCronExpressions(t *testing.T) {
	source := NewScheduleSource(slog.Default())

	assert.Error(t, source.Add(Schedule{Name: "bad", CronExpr: "not a cron", ServerID: "server-1"}))
	assert.Error(t, source.Add(Schedule{Name: "no-server", CronExpr: "* * * * *"}))
	assert.NoError(t, source.Add(Schedule{Name: "ok", CronExpr: "*/5 * * * *", ServerID: "server-1"}))
}

func TestTopicSourceEmitsNormalizedEvents(t *testing.T) {
	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	source := NewTopicSource(slog.Default(), subscriber, "game.events.raw")

	var (
		mu       sync.Mutex
		received []events.TriggerEvent
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = source.Start(ctx, func(_ context.Context, event events.TriggerEvent) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	publish := func(doc map[string]any) {
		payload, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, publisher.Publish("game.events.raw", message.NewMessage(watermill.NewUUID(), payload)))
	}

	publish(map[string]any{
		"event_type": "connected",
		"server_id":  "server-1",
		"payload":    map[string]any{"steam_id": "steam:1"},
	})
	publish(map[string]any{
		"event_type": "PLAYER_TELEPORTED",
		"server_id":  "server-1",
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, received, 1)
	assert.Equal(t, events.EventPlayerConnected, received[0].EventType)
	assert.Equal(t, "steam:1", received[0].Payload["steam_id"])
}
