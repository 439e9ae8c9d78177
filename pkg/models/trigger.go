package models

import "github.com/wardenhq/warden/pkg/condition"

// Trigger describes when a workflow starts: an event type plus an ordered
// condition list, all of which must hold against the event payload and the
// workflow's variables. FirstStepID optionally anchors this trigger to a
// distinct entry point in the step graph.
type Trigger struct {
	ID          string                `json:"id"         validate:"required"`
	Name        string                `json:"name"`
	EventType   string                `json:"event_type" validate:"required"`
	Conditions  []condition.Condition `json:"conditions,omitempty"`
	Enabled     bool                  `json:"enabled"`
	FirstStepID string                `json:"first_step_id,omitempty"`
}
