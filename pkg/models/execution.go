package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run. Transitions are
// monotonic: pending -> running -> one of the terminal states. Terminal rows
// are never reused or reopened.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusError     ExecutionStatus = "error"
)

// Terminal reports whether the status ends the execution.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusError:
		return true
	}

	return false
}

// Execution is one run of a workflow caused by one trigger match.
// TriggerData is an immutable snapshot of the triggering event payload.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	ServerID    string          `json:"server_id"`
	TriggerID   string          `json:"trigger_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	TriggerData map[string]any  `json:"trigger_data"`
	Error       string          `json:"error,omitempty"`
}
