package models

import "time"

// LogLevel is the severity of a free-text log message emitted by step scripts.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogMessage is a free-text message appended by in-step scripting or the
// log_message action. It is an independent append-only stream, not tied 1:1
// to step boundaries.
type LogMessage struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	StepID      string         `json:"step_id,omitempty"`
	StepName    string         `json:"step_name,omitempty"`
	LogTime     time.Time      `json:"log_time"`
	Level       LogLevel       `json:"log_level"`
	Message     string         `json:"message"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
