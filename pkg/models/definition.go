package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// CurrentDefinitionVersion is the only definition version this engine writes.
// Older versions are upgraded explicitly; unknown versions are rejected.
const CurrentDefinitionVersion = 1

const (
	DefaultMaxRetries         = 3
	DefaultRetryDelayMs       = 1000
	DefaultExecutionTimeoutMs = 5 * 60 * 1000
)

var (
	ErrUnknownDefinitionVersion = errors.New("unknown workflow definition version")
	ErrInvalidDefinition        = errors.New("invalid workflow definition")
)

// ErrorAction is what an execution does once a step's retries are exhausted.
type ErrorAction string

const (
	ErrorActionStop     ErrorAction = "stop"
	ErrorActionContinue ErrorAction = "continue"
)

// ErrorHandling holds the execution-wide error policy defaults. MaxRetries is
// a pointer so a configured zero keeps meaning "no retries" instead of
// falling back to the default budget.
type ErrorHandling struct {
	DefaultAction      ErrorAction `json:"default_action,omitempty"`
	MaxRetries         *int        `json:"max_retries,omitempty"`
	RetryDelayMs       int         `json:"retry_delay_ms,omitempty"`
	ExecutionTimeoutMs int64       `json:"execution_timeout_ms,omitempty"`
}

// WorkflowDefinition is the immutable automation program: triggers, default
// variables, the step graph and the error policy. Executions run against a
// deep copy snapshotted at trigger time, so concurrent editor saves never
// affect in-flight executions.
type WorkflowDefinition struct {
	Version       int            `json:"version"`
	Triggers      []*Trigger     `json:"triggers"`
	Variables     map[string]any `json:"variables,omitempty"`
	Steps         []*Step        `json:"steps"`
	ErrorHandling ErrorHandling  `json:"error_handling,omitempty"`
}

// definitionSchema is the structural gate applied to raw definitions before
// decoding. Referential checks (step IDs, branch targets) happen in Validate.
const definitionSchema = `{
	"type": "object",
	"required": ["version", "triggers", "steps"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"triggers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "event_type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"event_type": {"type": "string", "minLength": 1},
					"enabled": {"type": "boolean"},
					"first_step_id": {"type": "string"},
					"conditions": {"type": "array", "items": {"type": "object"}}
				}
			}
		},
		"variables": {"type": "object"},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"type": {"type": "string", "enum": ["action", "condition", "variable", "delay"]},
					"enabled": {"type": "boolean"},
					"config": {"type": "object"},
					"on_error": {"type": "string", "enum": ["stop", "continue", "retry"]},
					"next_steps": {"type": "object"}
				}
			}
		},
		"error_handling": {
			"type": "object",
			"properties": {
				"default_action": {"type": "string", "enum": ["stop", "continue"]},
				"max_retries": {"type": "integer", "minimum": 0},
				"retry_delay_ms": {"type": "integer", "minimum": 0},
				"execution_timeout_ms": {"type": "integer", "minimum": 0}
			}
		}
	}
}`

// ParseDefinition decodes and validates a raw definition document.
func ParseDefinition(raw []byte) (*WorkflowDefinition, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(details, "; "))
	}

	var def WorkflowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if def.Version != CurrentDefinitionVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDefinitionVersion, def.Version)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// Validate performs referential checks across triggers and steps.
func (d *WorkflowDefinition) Validate() error {
	if d.Version != CurrentDefinitionVersion {
		return fmt.Errorf("%w: %d", ErrUnknownDefinitionVersion, d.Version)
	}

	stepIDs := make(map[string]bool, len(d.Steps))

	for _, step := range d.Steps {
		if stepIDs[step.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidDefinition, step.ID)
		}

		stepIDs[step.ID] = true
	}

	for _, step := range d.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%w: step %q: %w", ErrInvalidDefinition, step.ID, err)
		}

		if step.NextSteps == nil {
			continue
		}

		for _, target := range []string{step.NextSteps.Default, step.NextSteps.OnTrue, step.NextSteps.OnFalse} {
			if target != "" && !stepIDs[target] {
				return fmt.Errorf("%w: step %q references unknown step %q", ErrInvalidDefinition, step.ID, target)
			}
		}
	}

	triggerIDs := make(map[string]bool, len(d.Triggers))

	for _, trigger := range d.Triggers {
		if triggerIDs[trigger.ID] {
			return fmt.Errorf("%w: duplicate trigger id %q", ErrInvalidDefinition, trigger.ID)
		}

		triggerIDs[trigger.ID] = true

		if trigger.EventType == "" {
			return fmt.Errorf("%w: trigger %q has no event type", ErrInvalidDefinition, trigger.ID)
		}

		if trigger.FirstStepID != "" && !stepIDs[trigger.FirstStepID] {
			return fmt.Errorf("%w: trigger %q anchors unknown step %q", ErrInvalidDefinition, trigger.ID, trigger.FirstStepID)
		}
	}

	return nil
}

// Clone deep-copies the definition through JSON. Executions own the copy, so
// trigger-time snapshots are isolated from concurrent edits.
func (d *WorkflowDefinition) Clone() *WorkflowDefinition {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil
	}

	var copied WorkflowDefinition
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil
	}

	return &copied
}

// MaxRetriesOrDefault returns the configured retry budget with defaults applied.
func (e ErrorHandling) MaxRetriesOrDefault() int {
	if e.MaxRetries == nil || *e.MaxRetries < 0 {
		return DefaultMaxRetries
	}

	return *e.MaxRetries
}

// RetryDelayOrDefault returns the delay between retry attempts.
func (e ErrorHandling) RetryDelayOrDefault() time.Duration {
	if e.RetryDelayMs <= 0 {
		return time.Duration(DefaultRetryDelayMs) * time.Millisecond
	}

	return time.Duration(e.RetryDelayMs) * time.Millisecond
}

// ExecutionTimeoutOrDefault returns the hard per-execution timeout.
func (e ErrorHandling) ExecutionTimeoutOrDefault() time.Duration {
	if e.ExecutionTimeoutMs <= 0 {
		return time.Duration(DefaultExecutionTimeoutMs) * time.Millisecond
	}

	return time.Duration(e.ExecutionTimeoutMs) * time.Millisecond
}

// DefaultActionOrDefault returns the retry-exhausted fallback action.
func (e ErrorHandling) DefaultActionOrDefault() ErrorAction {
	if e.DefaultAction == "" {
		return ErrorActionStop
	}

	return e.DefaultAction
}
