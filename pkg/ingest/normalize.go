package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wardenhq/warden/pkg/events"
	"github.com/wardenhq/warden/pkg/metrics"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrServerIDMissing  = errors.New("server id is required")
)

// eventAliases maps upstream spellings of event kinds to the canonical
// catalogue. Game-server log shippers are not consistent about naming.
var eventAliases = map[string]string{
	"CHAT":                   events.EventChatMessage,
	"PLAYER_CHAT":            events.EventChatMessage,
	"KILL":                   events.EventPlayerKill,
	"PLAYER_DIED":            events.EventPlayerKill,
	"TEAMKILL":               events.EventTeamKill,
	"CONNECTED":              events.EventPlayerConnected,
	"PLAYER_CONNECTED":       events.EventPlayerConnected,
	"DISCONNECTED":           events.EventPlayerDisconnected,
	"PLAYER_DISCONNECTED":    events.EventPlayerDisconnected,
	"BANNED":                 events.EventPlayerBanned,
	"POSSESSED_ADMIN_CAMERA": events.EventAdminCamera,
	"NEW_GAME":               events.EventRoundEnded,
}

// Normalize validates a raw upstream event and produces the canonical
// envelope. Unknown event kinds and missing server IDs are rejected and
// counted, never forwarded.
func Normalize(eventType, serverID string, payload map[string]any) (events.TriggerEvent, error) {
	if strings.TrimSpace(serverID) == "" {
		metrics.EventsRejected.Inc()

		return events.TriggerEvent{}, ErrServerIDMissing
	}

	canonical := strings.ToUpper(strings.TrimSpace(eventType))
	if alias, ok := eventAliases[canonical]; ok {
		canonical = alias
	}

	if !events.KnownEventTypes[canonical] {
		metrics.EventsRejected.Inc()

		return events.TriggerEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	metrics.EventsIngested.WithLabelValues(canonical).Inc()

	return events.NewTriggerEvent(canonical, serverID, payload), nil
}
