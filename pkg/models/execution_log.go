package models

import "time"

// StepStatus is the state of one step attempt as recorded in the log stream.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusError     StepStatus = "error"
)

// Rank orders statuses for display: a running row sorts before the terminal
// row of the same step attempt.
func (s StepStatus) Rank() int {
	switch s {
	case StepStatusRunning:
		return 0
	case StepStatusCompleted:
		return 1
	case StepStatusFailed:
		return 2
	case StepStatusError:
		return 3
	}

	return 4
}

// ExecutionLog is one append-only row in a step's attempt history. Every
// attempt produces a running row and a terminal row; retries repeat the same
// StepOrder with an incremented Attempt. Rows are never updated in place.
type ExecutionLog struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepOrder   int            `json:"step_order"`
	Attempt     int            `json:"attempt"`
	StepID      string         `json:"step_id"`
	StepName    string         `json:"step_name"`
	StepType    StepType       `json:"step_type"`
	StepStatus  StepStatus     `json:"step_status"`
	StepInput   map[string]any `json:"step_input,omitempty"`
	StepOutput  any            `json:"step_output,omitempty"`
	DurationMs  int64          `json:"step_duration_ms"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
	LoggedAt    time.Time      `json:"logged_at"`
}
