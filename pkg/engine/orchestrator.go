package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/events"
	"github.com/wardenhq/warden/pkg/metrics"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/registry"
)

// Orchestrator turns matched trigger events into executions. Each match gets
// its own execution row and its own definition snapshot, so concurrent events
// and concurrent editor saves never interfere with a running execution.
type Orchestrator struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	matcher     *Matcher
	runner      *Runner
	logger      *slog.Logger

	// inflight tracks running executions so shutdown can drain them.
	inflight sync.WaitGroup
}

func NewOrchestrator(p persistence.Persistence, bus eventbus.EventBus, reg *registry.Registry, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		persistence: p,
		bus:         bus,
		matcher:     NewMatcher(logger),
		runner:      NewRunner(p.ExecutionRepository(), reg, logger),
		logger:      logger.With("module", "orchestrator"),
	}
}

// Start registers the trigger event handler and begins consuming the bus.
func (o *Orchestrator) Start(ctx context.Context) error {
	err := o.bus.Handle(events.TriggerEventReceived, func(ctx context.Context, event any) error {
		trigger, ok := event.(*events.TriggerEvent)
		if !ok {
			return fmt.Errorf("unexpected trigger event payload %T", event)
		}

		return o.OnEvent(ctx, *trigger)
	})
	if err != nil {
		return err
	}

	return o.bus.Subscribe(ctx)
}

// OnEvent dispatches one normalized event: it matches the server's enabled
// workflows, creates one execution per matched trigger and starts them in the
// background. It returns as soon as every execution row is durably recorded,
// so a slow or delayed execution never stalls dispatch of the next event.
// The execution rows make the event recoverable before the bus message is
// acknowledged; Drain waits out the background executions on shutdown.
func (o *Orchestrator) OnEvent(ctx context.Context, event events.TriggerEvent) error {
	workflows, err := o.persistence.WorkflowRepository().ListEnabledByServer(ctx, event.ServerID)
	if err != nil {
		return fmt.Errorf("failed to list workflows for server %s: %w", event.ServerID, err)
	}

	for _, workflow := range workflows {
		for _, trigger := range o.matcher.Match(event, workflow) {
			execution, snapshot, err := o.createExecution(ctx, workflow, trigger, event)
			if err != nil {
				o.logger.Error("Failed to create execution",
					"workflow_id", workflow.ID,
					"trigger_id", trigger.ID,
					"error", err)

				continue
			}

			o.inflight.Add(1)

			go func(trigger *models.Trigger) {
				defer o.inflight.Done()
				o.runExecution(ctx, execution, snapshot, trigger.FirstStepID)
			}(trigger)
		}
	}

	return nil
}

// Drain blocks until every in-flight execution has reached a terminal state.
func (o *Orchestrator) Drain() {
	o.inflight.Wait()
}

func (o *Orchestrator) createExecution(ctx context.Context, workflow *models.Workflow, trigger *models.Trigger, event events.TriggerEvent) (*models.Execution, *models.WorkflowDefinition, error) {
	snapshot := workflow.Definition.Clone()
	if snapshot == nil {
		return nil, nil, fmt.Errorf("workflow %s has an uncloneable definition", workflow.ID)
	}

	execution := &models.Execution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		ServerID:    workflow.ServerID,
		TriggerID:   trigger.ID,
		Status:      models.ExecutionStatusRunning,
		StartedAt:   time.Now().UTC(),
		TriggerData: event.Payload,
	}

	if err := o.persistence.ExecutionRepository().CreateExecution(ctx, execution); err != nil {
		return nil, nil, err
	}

	o.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, execution.WorkflowID, execution.ServerID),
		ExecutionID: execution.ID,
		TriggerID:   execution.TriggerID,
		TriggerData: execution.TriggerData,
	})

	return execution, snapshot, nil
}

// runExecution runs one execution to its terminal state under the definition's
// hard timeout, then records the outcome and notifies the bus.
func (o *Orchestrator) runExecution(ctx context.Context, execution *models.Execution, definition *models.WorkflowDefinition, firstStepID string) {
	runCtx, cancel := context.WithTimeout(ctx, definition.ErrorHandling.ExecutionTimeoutOrDefault())
	defer cancel()

	status, message := o.runner.Run(runCtx, execution, definition, firstStepID)

	completedAt := time.Now().UTC()
	durationMs := completedAt.Sub(execution.StartedAt).Milliseconds()

	execution.Status = status
	execution.CompletedAt = &completedAt
	execution.Error = message

	if err := o.persistence.ExecutionRepository().UpdateExecution(context.WithoutCancel(ctx), execution); err != nil {
		o.logger.Error("Failed to record execution outcome",
			"execution_id", execution.ID,
			"status", status,
			"error", err)
	}

	metrics.ExecutionsFinished.WithLabelValues(string(status)).Inc()
	metrics.ExecutionDuration.Observe(float64(durationMs))

	base := events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID, execution.ServerID)

	if status == models.ExecutionStatusCompleted {
		o.publish(ctx, execution.ID, events.ExecutionCompleted{
			BaseEvent:   base,
			ExecutionID: execution.ID,
			DurationMs:  durationMs,
		})

		o.logger.Info("Execution completed", "execution_id", execution.ID, "duration_ms", durationMs)

		return
	}

	base.Type = events.ExecutionFailedEvent

	o.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   base,
		ExecutionID: execution.ID,
		Status:      string(status),
		Error:       message,
		DurationMs:  durationMs,
	})

	o.logger.Warn("Execution did not complete",
		"execution_id", execution.ID,
		"status", status,
		"error", message)
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := o.bus.Publish(context.WithoutCancel(ctx), key, event); err != nil {
		o.logger.Warn("Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"key", key,
			"error", err)
	}
}
