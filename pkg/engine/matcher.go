// Package engine runs workflows: it matches incoming events against trigger
// declarations, walks the step graph and records every attempt in the
// append-only execution log.
package engine

import (
	"log/slog"

	"github.com/wardenhq/warden/pkg/condition"
	"github.com/wardenhq/warden/pkg/events"
	"github.com/wardenhq/warden/pkg/metrics"
	"github.com/wardenhq/warden/pkg/models"
)

// Matcher decides which triggers of a workflow fire for one event. A
// malformed trigger condition disables that trigger for the event instead of
// failing the whole dispatch.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match returns every enabled trigger of an enabled workflow whose event type
// equals the event's type and whose conditions all hold.
func (m *Matcher) Match(event events.TriggerEvent, workflow *models.Workflow) []*models.Trigger {
	if !workflow.Enabled || workflow.Definition == nil {
		return nil
	}

	scope := map[string]any{
		"payload": event.Payload,
		"trigger": event.Payload,
		"vars":    workflow.Definition.Variables,
	}

	var matched []*models.Trigger

	for _, trigger := range workflow.Definition.Triggers {
		if !trigger.Enabled || trigger.EventType != event.EventType {
			continue
		}

		ok, err := condition.All(trigger.Conditions, scope)
		if err != nil {
			m.logger.Warn("Skipping trigger with unevaluable condition",
				"workflow_id", workflow.ID,
				"trigger_id", trigger.ID,
				"error", err)

			continue
		}

		if !ok {
			continue
		}

		metrics.TriggersMatched.WithLabelValues(event.EventType).Inc()

		matched = append(matched, trigger)
	}

	return matched
}
