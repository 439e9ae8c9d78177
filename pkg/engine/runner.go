package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/condition"
	"github.com/wardenhq/warden/pkg/metrics"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/registry"
	"github.com/wardenhq/warden/pkg/template"
)

// branch selects which successor of a step the walk follows.
type branch int

const (
	branchDefault branch = iota
	branchTrue
	branchFalse
)

// Runner walks the step graph of a single execution. Every step attempt is
// recorded as an append-only pair of log rows: a running row when the attempt
// starts and a terminal row when it ends. Retries repeat the same step order
// with an incremented attempt number.
type Runner struct {
	executions persistence.ExecutionRepository
	registry   *registry.Registry
	logger     *slog.Logger
}

func NewRunner(executions persistence.ExecutionRepository, registry *registry.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		executions: executions,
		registry:   registry,
		logger:     logger.With("module", "step_runner"),
	}
}

// Run executes the step graph against the given definition snapshot and
// returns the terminal status plus an error message for failed and error
// outcomes. The caller bounds ctx with the execution timeout; a dead context
// turns into the error status.
func (r *Runner) Run(ctx context.Context, execution *models.Execution, definition *models.WorkflowDefinition, firstStepID string) (models.ExecutionStatus, string) {
	executionCtx := &models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		ServerID:    execution.ServerID,
		TriggerData: execution.TriggerData,
		Variables:   cloneVariables(definition.Variables),
		StepResults: make(map[string]any),
		Metadata:    make(map[string]any),
	}

	logger := r.logger.With(
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
		"server_id", execution.ServerID,
	)

	currentStepID := firstStepID
	if currentStepID == "" && len(definition.Steps) > 0 {
		currentStepID = definition.Steps[0].ID
	}

	stepOrder := 0

	for currentStepID != "" {
		if err := ctx.Err(); err != nil {
			return models.ExecutionStatusError, timeoutMessage(err)
		}

		step := findStep(definition.Steps, currentStepID)
		if step == nil {
			return models.ExecutionStatusError, fmt.Sprintf("step %q not found in definition", currentStepID)
		}

		if !step.Enabled {
			logger.Debug("Step disabled, skipping", "step_id", step.ID)

			currentStepID = nextStepID(definition, step, branchDefault)

			continue
		}

		stepOrder++

		executionCtx.StepID = step.ID
		executionCtx.StepName = step.Name

		cfg, err := step.DecodeConfig()
		if err != nil {
			row := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusError)
			row.Error = err.Error()
			r.appendLog(ctx, row)

			return models.ExecutionStatusError, fmt.Sprintf("step %q: %v", step.ID, err)
		}

		var (
			next    string
			failure error
		)

		switch cfg := cfg.(type) {
		case models.ActionStepConfig:
			next, failure = r.runActionStep(ctx, executionCtx, definition, step, cfg, stepOrder, logger)
		case models.ConditionStepConfig:
			next, failure = r.runConditionStep(ctx, executionCtx, definition, step, cfg, stepOrder, logger)
		case models.VariableStepConfig:
			next, failure = r.runVariableStep(ctx, executionCtx, definition, step, cfg, stepOrder)
		case models.DelayStepConfig:
			next, failure = r.runDelayStep(ctx, executionCtx, definition, step, cfg, stepOrder)
		default:
			return models.ExecutionStatusError, fmt.Sprintf("step %q: unsupported config %T", step.ID, cfg)
		}

		if failure != nil {
			if ctx.Err() != nil {
				return models.ExecutionStatusError, timeoutMessage(ctx.Err())
			}

			return models.ExecutionStatusFailed, fmt.Sprintf("step %q: %v", step.ID, failure)
		}

		currentStepID = next
	}

	return models.ExecutionStatusCompleted, ""
}

// runActionStep dispatches one action with the step's retry policy. A nil
// error means the step either succeeded or failed with a continue policy; a
// non-nil error stops the execution.
func (r *Runner) runActionStep(ctx context.Context, executionCtx *models.ExecutionContext, definition *models.WorkflowDefinition, step *models.Step, cfg models.ActionStepConfig, stepOrder int, logger *slog.Logger) (string, error) {
	maxAttempts := 1
	if step.OnErrorOrDefault() == models.ErrorPolicyRetry {
		maxAttempts = definition.ErrorHandling.MaxRetriesOrDefault() + 1
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		output, err := r.attemptAction(ctx, executionCtx, step, cfg, stepOrder, attempt, logger)
		if err == nil {
			metrics.ActionsExecuted.WithLabelValues(cfg.ActionType, "completed").Inc()

			executionCtx.StepResults[step.ID] = output
			if cfg.ResultVariable != "" {
				executionCtx.Variables[cfg.ResultVariable] = output
			}

			return nextStepID(definition, step, branchDefault), nil
		}

		metrics.ActionsExecuted.WithLabelValues(cfg.ActionType, "failed").Inc()
		logger.Warn("Action attempt failed",
			"step_id", step.ID,
			"action_type", cfg.ActionType,
			"attempt", attempt,
			"error", err)

		lastErr = err

		if attempt < maxAttempts {
			if sleepErr := sleepCtx(ctx, definition.ErrorHandling.RetryDelayOrDefault()); sleepErr != nil {
				return "", sleepErr
			}
		}
	}

	if failureAction(step, definition.ErrorHandling) == models.ErrorActionContinue {
		logger.Warn("Step failed, continuing per error policy", "step_id", step.ID)

		return nextStepID(definition, step, branchDefault), nil
	}

	return "", lastErr
}

// attemptAction performs one attempt: render params, build the action and
// execute it under the optional per-step timeout.
func (r *Runner) attemptAction(ctx context.Context, executionCtx *models.ExecutionContext, step *models.Step, cfg models.ActionStepConfig, stepOrder, attempt int, logger *slog.Logger) (any, error) {
	params, renderErr := template.RenderConfig(cfg.Params, executionCtx)

	running := r.newLogRow(executionCtx, step, stepOrder, attempt, models.StepStatusRunning)
	running.StepInput = params
	r.appendLog(ctx, running)

	started := time.Now()

	fail := func(err error) (any, error) {
		row := r.newLogRow(executionCtx, step, stepOrder, attempt, models.StepStatusFailed)
		row.StepInput = params
		row.DurationMs = time.Since(started).Milliseconds()
		row.Error = err.Error()
		r.appendLog(ctx, row)

		return nil, err
	}

	if renderErr != nil {
		return fail(renderErr)
	}

	action, err := r.registry.CreateAction(cfg.ActionType, params)
	if err != nil {
		return fail(err)
	}

	actionCtx := ctx

	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc

		actionCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := action.Execute(actionCtx, executionCtx, logger)
	if err != nil {
		return fail(err)
	}

	completed := r.newLogRow(executionCtx, step, stepOrder, attempt, models.StepStatusCompleted)
	completed.StepInput = params
	completed.StepOutput = output
	completed.DurationMs = time.Since(started).Milliseconds()
	r.appendLog(ctx, completed)

	return output, nil
}

// runConditionStep evaluates the predicate list and picks the matching
// branch. With no explicit next_steps, a true result falls through in
// declaration order and a false result ends the execution.
func (r *Runner) runConditionStep(ctx context.Context, executionCtx *models.ExecutionContext, definition *models.WorkflowDefinition, step *models.Step, cfg models.ConditionStepConfig, stepOrder int, logger *slog.Logger) (string, error) {
	running := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusRunning)
	running.StepInput = step.Config
	r.appendLog(ctx, running)

	started := time.Now()

	result, err := condition.All(cfg.Conditions, executionCtx.Scope())
	if err != nil {
		row := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusFailed)
		row.StepInput = step.Config
		row.DurationMs = time.Since(started).Milliseconds()
		row.Error = err.Error()
		r.appendLog(ctx, row)

		if failureAction(step, definition.ErrorHandling) == models.ErrorActionContinue {
			logger.Warn("Condition step failed, continuing per error policy", "step_id", step.ID, "error", err)

			return nextStepID(definition, step, branchDefault), nil
		}

		return "", err
	}

	completed := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusCompleted)
	completed.StepInput = step.Config
	completed.StepOutput = map[string]any{"result": result}
	completed.DurationMs = time.Since(started).Milliseconds()
	r.appendLog(ctx, completed)

	executionCtx.StepResults[step.ID] = result

	if result {
		return nextStepID(definition, step, branchTrue), nil
	}

	return nextStepID(definition, step, branchFalse), nil
}

func (r *Runner) runVariableStep(ctx context.Context, executionCtx *models.ExecutionContext, definition *models.WorkflowDefinition, step *models.Step, cfg models.VariableStepConfig, stepOrder int) (string, error) {
	running := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusRunning)
	running.StepInput = step.Config
	r.appendLog(ctx, running)

	started := time.Now()

	value, err := template.RenderValue(cfg.Value, executionCtx)
	if err != nil {
		row := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusFailed)
		row.StepInput = step.Config
		row.DurationMs = time.Since(started).Milliseconds()
		row.Error = err.Error()
		r.appendLog(ctx, row)

		if failureAction(step, definition.ErrorHandling) == models.ErrorActionContinue {
			return nextStepID(definition, step, branchDefault), nil
		}

		return "", err
	}

	switch cfg.Operation {
	case models.VariableOpSet:
		executionCtx.Variables[cfg.Name] = value
	case models.VariableOpAppend:
		switch existing := executionCtx.Variables[cfg.Name].(type) {
		case nil:
			executionCtx.Variables[cfg.Name] = []any{value}
		case []any:
			executionCtx.Variables[cfg.Name] = append(existing, value)
		default:
			executionCtx.Variables[cfg.Name] = []any{existing, value}
		}
	case models.VariableOpDelete:
		delete(executionCtx.Variables, cfg.Name)
	}

	completed := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusCompleted)
	completed.StepInput = step.Config
	completed.StepOutput = map[string]any{
		"operation": string(cfg.Operation),
		"name":      cfg.Name,
	}
	completed.DurationMs = time.Since(started).Milliseconds()
	r.appendLog(ctx, completed)

	return nextStepID(definition, step, branchDefault), nil
}

func (r *Runner) runDelayStep(ctx context.Context, executionCtx *models.ExecutionContext, definition *models.WorkflowDefinition, step *models.Step, cfg models.DelayStepConfig, stepOrder int) (string, error) {
	running := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusRunning)
	running.StepInput = step.Config
	r.appendLog(ctx, running)

	started := time.Now()

	if err := sleepCtx(ctx, cfg.Duration()); err != nil {
		row := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusError)
		row.StepInput = step.Config
		row.DurationMs = time.Since(started).Milliseconds()
		row.Error = err.Error()
		r.appendLog(ctx, row)

		return "", err
	}

	completed := r.newLogRow(executionCtx, step, stepOrder, 1, models.StepStatusCompleted)
	completed.StepInput = step.Config
	completed.DurationMs = time.Since(started).Milliseconds()
	r.appendLog(ctx, completed)

	return nextStepID(definition, step, branchDefault), nil
}

func (r *Runner) newLogRow(executionCtx *models.ExecutionContext, step *models.Step, stepOrder, attempt int, status models.StepStatus) *models.ExecutionLog {
	return &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: executionCtx.ExecutionID,
		StepOrder:   stepOrder,
		Attempt:     attempt,
		StepID:      step.ID,
		StepName:    step.Name,
		StepType:    step.Type,
		StepStatus:  status,
		Variables:   cloneVariables(executionCtx.Variables),
		LoggedAt:    time.Now().UTC(),
	}
}

// appendLog writes a log row outside the execution deadline so terminal rows
// still land after a timeout. A write failure never fails the execution.
func (r *Runner) appendLog(ctx context.Context, row *models.ExecutionLog) {
	if err := r.executions.AppendStepLog(context.WithoutCancel(ctx), row); err != nil {
		r.logger.Warn("Failed to append step log",
			"execution_id", row.ExecutionID,
			"step_id", row.StepID,
			"error", err)
	}
}

func findStep(steps []*models.Step, stepID string) *models.Step {
	for _, step := range steps {
		if step.ID == stepID {
			return step
		}
	}

	return nil
}

// nextStepID resolves a step's successor. An explicit next_steps table always
// overrides declaration order; an empty target ends the execution.
func nextStepID(definition *models.WorkflowDefinition, step *models.Step, b branch) string {
	if step.NextSteps != nil {
		switch b {
		case branchTrue:
			return step.NextSteps.OnTrue
		case branchFalse:
			return step.NextSteps.OnFalse
		default:
			return step.NextSteps.Default
		}
	}

	if b == branchFalse {
		return ""
	}

	for i, candidate := range definition.Steps {
		if candidate.ID == step.ID {
			if i+1 < len(definition.Steps) {
				return definition.Steps[i+1].ID
			}

			return ""
		}
	}

	return ""
}

// failureAction resolves the retry-exhausted outcome for a step.
func failureAction(step *models.Step, errorHandling models.ErrorHandling) models.ErrorAction {
	switch step.OnErrorOrDefault() {
	case models.ErrorPolicyContinue:
		return models.ErrorActionContinue
	case models.ErrorPolicyStop:
		return models.ErrorActionStop
	default:
		return errorHandling.DefaultActionOrDefault()
	}
}

func cloneVariables(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	maps.Copy(out, vars)

	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func timeoutMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "execution exceeded its time limit"
	}

	return "execution cancelled"
}
