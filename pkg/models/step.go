package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/pkg/condition"
)

// StepType is the closed set of step kinds.
type StepType string

const (
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeVariable  StepType = "variable"
	StepTypeDelay     StepType = "delay"
)

// ErrorPolicy is the per-step reaction to a failed attempt.
type ErrorPolicy string

const (
	ErrorPolicyStop     ErrorPolicy = "stop"
	ErrorPolicyContinue ErrorPolicy = "continue"
	ErrorPolicyRetry    ErrorPolicy = "retry"
)

// NextSteps is the explicit successor table for a step. When present it
// always overrides declaration order. OnTrue/OnFalse are only read for
// condition steps.
type NextSteps struct {
	Default string `json:"default,omitempty"`
	OnTrue  string `json:"on_true,omitempty"`
	OnFalse string `json:"on_false,omitempty"`
}

// Step is one unit of work in a workflow definition. Config is the raw
// type-specific payload; DecodeConfig returns the typed variant.
type Step struct {
	ID        string         `json:"id"      validate:"required"`
	Name      string         `json:"name"`
	Type      StepType       `json:"type"    validate:"required"`
	Enabled   bool           `json:"enabled"`
	Config    map[string]any `json:"config,omitempty"`
	OnError   ErrorPolicy    `json:"on_error,omitempty"`
	NextSteps *NextSteps     `json:"next_steps,omitempty"`
}

var ErrUnknownStepType = errors.New("unknown step type")

// Validate checks the step's type, error policy and typed config.
func (s *Step) Validate() error {
	switch s.Type {
	case StepTypeAction, StepTypeCondition, StepTypeVariable, StepTypeDelay:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepType, s.Type)
	}

	switch s.OnError {
	case "", ErrorPolicyStop, ErrorPolicyContinue, ErrorPolicyRetry:
	default:
		return fmt.Errorf("unknown on_error policy %q", s.OnError)
	}

	_, err := s.DecodeConfig()

	return err
}

// OnErrorOrDefault returns the step's error policy, defaulting to stop.
func (s *Step) OnErrorOrDefault() ErrorPolicy {
	if s.OnError == "" {
		return ErrorPolicyStop
	}

	return s.OnError
}

// StepConfig is the tagged-variant marker implemented by the typed configs.
type StepConfig interface {
	stepConfig()
}

// ActionStepConfig configures an action step. Params are template-resolved
// before dispatch; ResultVariable optionally maps the action output into the
// execution's variable bag.
type ActionStepConfig struct {
	ActionType     string         `json:"action_type"`
	Params         map[string]any `json:"params,omitempty"`
	ResultVariable string         `json:"result_variable,omitempty"`
	TimeoutMs      int64          `json:"timeout_ms,omitempty"`
}

func (ActionStepConfig) stepConfig() {}

// Timeout returns the per-step action timeout, zero meaning none.
func (c ActionStepConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ConditionStepConfig configures a condition step: all predicates must hold
// for the true branch to be taken.
type ConditionStepConfig struct {
	Conditions []condition.Condition `json:"conditions"`
}

func (ConditionStepConfig) stepConfig() {}

// VariableOp is a variable step mutation kind.
type VariableOp string

const (
	VariableOpSet    VariableOp = "set"
	VariableOpAppend VariableOp = "append"
	VariableOpDelete VariableOp = "delete"
)

// VariableStepConfig configures a variable step. Value supports templating.
type VariableStepConfig struct {
	Operation VariableOp `json:"operation"`
	Name      string     `json:"name"`
	Value     any        `json:"value,omitempty"`
}

func (VariableStepConfig) stepConfig() {}

// DelayStepConfig configures a delay step.
type DelayStepConfig struct {
	DurationMs int64 `json:"duration_ms"`
}

func (DelayStepConfig) stepConfig() {}

// Duration returns the configured pause.
func (c DelayStepConfig) Duration() time.Duration {
	return time.Duration(c.DurationMs) * time.Millisecond
}

// DecodeConfig decodes the raw config map into the step type's typed variant.
func (s *Step) DecodeConfig() (StepConfig, error) {
	switch s.Type {
	case StepTypeAction:
		return decodeActionConfig(s.Config)
	case StepTypeCondition:
		return decodeConditionConfig(s.Config)
	case StepTypeVariable:
		return decodeVariableConfig(s.Config)
	case StepTypeDelay:
		return decodeDelayConfig(s.Config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, s.Type)
	}
}

func decodeActionConfig(config map[string]any) (ActionStepConfig, error) {
	var cfg ActionStepConfig

	actionType, _ := config["action_type"].(string)
	if actionType == "" {
		return cfg, errors.New("action step requires an action_type")
	}

	cfg.ActionType = actionType
	cfg.ResultVariable, _ = config["result_variable"].(string)
	cfg.TimeoutMs = intFromConfig(config, "timeout_ms")

	if params, ok := config["params"].(map[string]any); ok {
		cfg.Params = params
	}

	return cfg, nil
}

func decodeConditionConfig(config map[string]any) (ConditionStepConfig, error) {
	var cfg ConditionStepConfig

	raw, ok := config["conditions"].([]any)
	if !ok || len(raw) == 0 {
		return cfg, errors.New("condition step requires a conditions list")
	}

	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return cfg, fmt.Errorf("condition %d is not an object", i)
		}

		field, _ := m["field"].(string)
		operator, _ := m["operator"].(string)

		cond := condition.Condition{
			Field:    field,
			Operator: condition.Operator(operator),
			Value:    m["value"],
		}
		if err := cond.Validate(); err != nil {
			return cfg, fmt.Errorf("condition %d: %w", i, err)
		}

		cfg.Conditions = append(cfg.Conditions, cond)
	}

	return cfg, nil
}

func decodeVariableConfig(config map[string]any) (VariableStepConfig, error) {
	var cfg VariableStepConfig

	name, _ := config["name"].(string)
	if name == "" {
		return cfg, errors.New("variable step requires a name")
	}

	op, _ := config["operation"].(string)
	if op == "" {
		op = string(VariableOpSet)
	}

	switch VariableOp(op) {
	case VariableOpSet, VariableOpAppend, VariableOpDelete:
	default:
		return cfg, fmt.Errorf("unknown variable operation %q", op)
	}

	cfg.Name = name
	cfg.Operation = VariableOp(op)
	cfg.Value = config["value"]

	return cfg, nil
}

func decodeDelayConfig(config map[string]any) (DelayStepConfig, error) {
	var cfg DelayStepConfig

	cfg.DurationMs = intFromConfig(config, "duration_ms")
	if cfg.DurationMs <= 0 {
		return cfg, errors.New("delay step requires a positive duration_ms")
	}

	return cfg, nil
}

// intFromConfig reads an integer that may arrive as float64 from JSON.
func intFromConfig(config map[string]any, key string) int64 {
	switch v := config[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}

	return 0
}
