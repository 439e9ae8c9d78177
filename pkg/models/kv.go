package models

import "time"

// KVEntry is one persisted key-value pair scoped to a workflow. Entries are
// shared by all executions of that workflow and survive them; uniqueness is
// per (workflow_id, key).
type KVEntry struct {
	WorkflowID string    `json:"workflow_id"`
	Key        string    `json:"key"`
	Value      any       `json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}
