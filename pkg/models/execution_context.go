package models

// ExecutionContext carries the mutable state of one running execution through
// template rendering and action dispatch. Variables and StepResults are
// execution-local; TriggerData is the immutable event snapshot. StepID and
// StepName identify the step currently running; the runner updates them as it
// walks the graph so log messages carry their origin.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	ServerID    string         `json:"server_id"`
	StepID      string         `json:"step_id,omitempty"`
	StepName    string         `json:"step_name,omitempty"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	StepResults map[string]any `json:"step_results,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Scope builds the flat lookup map used by condition evaluation: the event
// payload under "payload"/"trigger" and variables under "vars".
func (c *ExecutionContext) Scope() map[string]any {
	return map[string]any{
		"payload": c.TriggerData,
		"trigger": c.TriggerData,
		"vars":    c.Variables,
		"steps":   c.StepResults,
	}
}
