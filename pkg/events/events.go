// Package events defines the canonical event envelopes exchanged between the
// ingest sources, the orchestrator and the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TriggerTopic   = "warden.events.triggers"   // normalized game events awaiting dispatch
	LifecycleTopic = "warden.events.executions" // execution lifecycle notifications
)

const (
	EventMetadataKey     = "key"
	EventTypeMetadataKey = "event_type"
)

// Canonical game event kinds the trigger matcher understands.
const (
	EventChatMessage        = "CHAT_MESSAGE"
	EventPlayerKill         = "PLAYER_KILL"
	EventTeamKill           = "TEAM_KILL"
	EventPlayerConnected    = "LOG_PLAYER_CONNECTED"
	EventPlayerDisconnected = "LOG_PLAYER_DISCONNECTED"
	EventPlayerBanned       = "PLAYER_BANNED"
	EventAdminCamera        = "ADMIN_CAMERA"
	EventRoundEnded         = "ROUND_ENDED"
	EventScheduledTime      = "SCHEDULED_TIME"
)

// KnownEventTypes is the closed catalogue of trigger event kinds.
var KnownEventTypes = map[string]bool{
	EventChatMessage:        true,
	EventPlayerKill:         true,
	EventTeamKill:           true,
	EventPlayerConnected:    true,
	EventPlayerDisconnected: true,
	EventPlayerBanned:       true,
	EventAdminCamera:        true,
	EventRoundEnded:         true,
	EventScheduledTime:      true,
}

// TriggerEvent is the normalized envelope for one in-game event on one server.
type TriggerEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	ServerID  string         `json:"server_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewTriggerEvent builds an envelope with a fresh ID and UTC timestamp.
func NewTriggerEvent(eventType, serverID string, payload map[string]any) TriggerEvent {
	if payload == nil {
		payload = make(map[string]any)
	}

	return TriggerEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		ServerID:  serverID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// EventType identifies a bus event kind.
type EventType string

const (
	TriggerEventReceived    EventType = "trigger.event.received"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
)

// BusEvent is implemented by everything published on the event bus.
type BusEvent interface {
	GetType() EventType
}

func (e TriggerEvent) GetType() EventType {
	return TriggerEventReceived
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	ServerID   string    `json:"server_id"`
}

func NewBaseEvent(eventType EventType, workflowID, serverID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		ServerID:   serverID,
	}
}

// ExecutionStarted is published when a trigger match creates an execution.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	TriggerID   string         `json:"trigger_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionCompleted is published when an execution reaches the completed state.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed is published for the failed and error terminal states.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}
