package web

import "encoding/json"

// SaveWorkflowRequest is the body for creating (POST) and replacing (PUT) a
// workflow. The definition is validated before anything is stored.
type SaveWorkflowRequest struct {
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Enabled     bool            `json:"enabled"`
	CreatedBy   string          `json:"created_by"`
	Definition  json.RawMessage `json:"definition"  validate:"required"`
}

// SetEnabledRequest toggles a workflow's soft enable flag.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// KVSetRequest writes one KV entry. Zero TTL means the entry never expires.
type KVSetRequest struct {
	Value      any `json:"value"`
	TTLSeconds int `json:"ttl_seconds" validate:"min=0"`
}

// IngestEventRequest is one raw game event posted by a log shipper.
type IngestEventRequest struct {
	EventType string         `json:"event_type" validate:"required"`
	Payload   map[string]any `json:"payload"`
}
