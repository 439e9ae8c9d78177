package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const banDefinition = `{
	"version": 1,
	"triggers": [
		{"id": "t-teamkill", "event_type": "TEAM_KILL", "enabled": true}
	],
	"variables": {"offense_limit": 3},
	"steps": [
		{
			"id": "check",
			"type": "condition",
			"enabled": true,
			"config": {"conditions": [{"field": "vars.offense_limit", "operator": "gte", "value": 3}]},
			"next_steps": {"on_true": "ban"}
		},
		{
			"id": "ban",
			"type": "action",
			"enabled": true,
			"config": {"action_type": "ban_player", "params": {"player_id": "{{ .trigger.steam_id }}"}}
		}
	],
	"error_handling": {"default_action": "continue", "max_retries": 2}
}`

func TestParseDefinitionRoundTrip(t *testing.T) {
	def, err := ParseDefinition([]byte(banDefinition))

	require.NoError(t, err)
	assert.Equal(t, CurrentDefinitionVersion, def.Version)
	require.Len(t, def.Triggers, 1)
	assert.Equal(t, "TEAM_KILL", def.Triggers[0].EventType)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, StepTypeCondition, def.Steps[0].Type)
	assert.Equal(t, "ban", def.Steps[0].NextSteps.OnTrue)
	assert.Equal(t, ErrorActionContinue, def.ErrorHandling.DefaultAction)
	require.NotNil(t, def.ErrorHandling.MaxRetries)
	assert.Equal(t, 2, *def.ErrorHandling.MaxRetries)
}

func TestParseDefinitionRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an object", `[1, 2]`},
		{"missing steps", `{"version": 1, "triggers": []}`},
		{"unknown step type", `{"version": 1, "triggers": [], "steps": [{"id": "x", "type": "warp"}]}`},
		{"duplicate step id", `{"version": 1, "triggers": [], "steps": [
			{"id": "x", "type": "delay", "config": {"duration_ms": 10}},
			{"id": "x", "type": "delay", "config": {"duration_ms": 10}}
		]}`},
		{"dangling branch target", `{"version": 1, "triggers": [], "steps": [
			{"id": "x", "type": "delay", "config": {"duration_ms": 10}, "next_steps": {"default": "ghost"}}
		]}`},
		{"trigger anchors unknown step", `{"version": 1, "steps": [], "triggers": [
			{"id": "t", "event_type": "CHAT_MESSAGE", "first_step_id": "ghost"}
		]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tc.raw))

			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestParseDefinitionRejectsUnknownVersion(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"version": 99, "triggers": [], "steps": []}`))

	assert.ErrorIs(t, err, ErrUnknownDefinitionVersion)
}

func TestCloneIsolatesSnapshots(t *testing.T) {
	def, err := ParseDefinition([]byte(banDefinition))
	require.NoError(t, err)

	snapshot := def.Clone()
	require.NotNil(t, snapshot)

	def.Steps[1].Config["action_type"] = "kick_player"
	def.Variables["offense_limit"] = 99
	def.Triggers[0].Enabled = false

	assert.Equal(t, "ban_player", snapshot.Steps[1].Config["action_type"])
	assert.EqualValues(t, 3, snapshot.Variables["offense_limit"])
	assert.True(t, snapshot.Triggers[0].Enabled)
}

func TestDecodeConfigVariants(t *testing.T) {
	action := &Step{ID: "a", Type: StepTypeAction, Config: map[string]any{
		"action_type":     "kick_player",
		"params":          map[string]any{"player_id": "p1"},
		"result_variable": "kick_result",
		"timeout_ms":      float64(1500),
	}}

	cfg, err := action.DecodeConfig()
	require.NoError(t, err)

	actionCfg, ok := cfg.(ActionStepConfig)
	require.True(t, ok)
	assert.Equal(t, "kick_player", actionCfg.ActionType)
	assert.Equal(t, "kick_result", actionCfg.ResultVariable)
	assert.Equal(t, 1500*time.Millisecond, actionCfg.Timeout())

	variable := &Step{ID: "v", Type: StepTypeVariable, Config: map[string]any{"name": "count"}}

	cfg, err = variable.DecodeConfig()
	require.NoError(t, err)

	variableCfg, ok := cfg.(VariableStepConfig)
	require.True(t, ok)
	assert.Equal(t, VariableOpSet, variableCfg.Operation)

	delay := &Step{ID: "d", Type: StepTypeDelay, Config: map[string]any{"duration_ms": float64(250)}}

	cfg, err = delay.DecodeConfig()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.(DelayStepConfig).Duration())
}

func TestDecodeConfigRejectsBadConfigs(t *testing.T) {
	missingAction := &Step{ID: "a", Type: StepTypeAction, Config: map[string]any{}}
	_, err := missingAction.DecodeConfig()
	assert.Error(t, err)

	emptyConditions := &Step{ID: "c", Type: StepTypeCondition, Config: map[string]any{"conditions": []any{}}}
	_, err = emptyConditions.DecodeConfig()
	assert.Error(t, err)

	badOp := &Step{ID: "v", Type: StepTypeVariable, Config: map[string]any{"name": "x", "operation": "increment"}}
	_, err = badOp.DecodeConfig()
	assert.Error(t, err)

	zeroDelay := &Step{ID: "d", Type: StepTypeDelay, Config: map[string]any{}}
	_, err = zeroDelay.DecodeConfig()
	assert.Error(t, err)
}

func retryBudget(n int) *int {
	return &n
}

func TestErrorHandlingDefaults(t *testing.T) {
	var e ErrorHandling

	assert.Equal(t, DefaultMaxRetries, e.MaxRetriesOrDefault())
	assert.Equal(t, time.Second, e.RetryDelayOrDefault())
	assert.Equal(t, 5*time.Minute, e.ExecutionTimeoutOrDefault())
	assert.Equal(t, ErrorActionStop, e.DefaultActionOrDefault())

	tuned := ErrorHandling{DefaultAction: ErrorActionContinue, MaxRetries: retryBudget(1), RetryDelayMs: 50, ExecutionTimeoutMs: 2000}

	assert.Equal(t, 1, tuned.MaxRetriesOrDefault())
	assert.Equal(t, 50*time.Millisecond, tuned.RetryDelayOrDefault())
	assert.Equal(t, 2*time.Second, tuned.ExecutionTimeoutOrDefault())
	assert.Equal(t, ErrorActionContinue, tuned.DefaultActionOrDefault())

	step := &Step{}
	assert.Equal(t, ErrorPolicyStop, step.OnErrorOrDefault())
}

func TestErrorHandlingExplicitZeroRetriesDisablesRetrying(t *testing.T) {
	none := ErrorHandling{MaxRetries: retryBudget(0)}
	assert.Equal(t, 0, none.MaxRetriesOrDefault())

	parsed, err := ParseDefinition([]byte(`{
		"version": 1,
		"triggers": [],
		"steps": [{"id": "d", "type": "delay", "config": {"duration_ms": 10}}],
		"error_handling": {"max_retries": 0}
	}`))
	require.NoError(t, err)
	require.NotNil(t, parsed.ErrorHandling.MaxRetries)
	assert.Equal(t, 0, parsed.ErrorHandling.MaxRetriesOrDefault())
}
