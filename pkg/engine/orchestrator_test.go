package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/channels/gochannel"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/events"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/persistence/file"
	"github.com/wardenhq/warden/pkg/protocol"
	"github.com/wardenhq/warden/pkg/registry"
)

func newTestOrchestrator(t *testing.T, factories ...protocol.ActionFactory) (*Orchestrator, persistence.Persistence, eventbus.EventBus) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(publisher, subscriber)

	reg := registry.NewRegistry(slog.Default())
	for _, factory := range factories {
		reg.RegisterAction(factory)
	}

	return NewOrchestrator(p, bus, reg, slog.Default()), p, bus
}

func saveWorkflow(t *testing.T, p persistence.Persistence, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, p.WorkflowRepository().Save(context.Background(), workflow))
}

func kickWorkflow(enabled bool) *models.Workflow {
	return &models.Workflow{
		ID:       "wf-kick",
		ServerID: "server-1",
		Name:     "kick on connect",
		Enabled:  enabled,
		Definition: &models.WorkflowDefinition{
			Version: models.CurrentDefinitionVersion,
			Triggers: []*models.Trigger{
				{ID: "t-connect", EventType: events.EventPlayerConnected, Enabled: true},
			},
			Steps: []*models.Step{
				{
					ID:      "kick",
					Type:    models.StepTypeAction,
					Enabled: true,
					Config: map[string]any{
						"action_type": "kick_player",
						"params": map[string]any{
							"player_id": "{{ .trigger.steam_id }}",
						},
					},
				},
			},
		},
	}
}

func TestOnEventCreatesOneExecutionPerMatch(t *testing.T) {
	kick := okFactory("kick_player")

	orchestrator, p, _ := newTestOrchestrator(t, kick)
	saveWorkflow(t, p, kickWorkflow(true))

	event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", map[string]any{
		"steam_id": "steam:76561198000000001",
	})

	require.NoError(t, orchestrator.OnEvent(context.Background(), event))
	orchestrator.Drain()

	executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 1)

	execution := executions[0]
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "t-connect", execution.TriggerID)
	assert.Equal(t, "server-1", execution.ServerID)
	assert.NotNil(t, execution.CompletedAt)
	assert.Equal(t, "steam:76561198000000001", execution.TriggerData["steam_id"])
	assert.Len(t, kick.calls(), 1)
}

func TestOnEventConcurrentEventsGetIndependentExecutions(t *testing.T) {
	kick := okFactory("kick_player")

	orchestrator, p, _ := newTestOrchestrator(t, kick)
	saveWorkflow(t, p, kickWorkflow(true))

	var wg sync.WaitGroup

	for _, steamID := range []string{"steam:1", "steam:2"} {
		wg.Add(1)

		go func(steamID string) {
			defer wg.Done()

			event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", map[string]any{
				"steam_id": steamID,
			})

			assert.NoError(t, orchestrator.OnEvent(context.Background(), event))
		}(steamID)
	}

	wg.Wait()
	orchestrator.Drain()

	executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 2)

	assert.NotEqual(t, executions[0].ID, executions[1].ID)

	for _, execution := range executions {
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	}

	assert.Len(t, kick.calls(), 2)
}

func TestOnEventIgnoresOtherServersAndDisabledWorkflows(t *testing.T) {
	kick := okFactory("kick_player")

	orchestrator, p, _ := newTestOrchestrator(t, kick)
	saveWorkflow(t, p, kickWorkflow(true))

	disabled := kickWorkflow(false)
	disabled.ID = "wf-disabled"
	saveWorkflow(t, p, disabled)

	event := events.NewTriggerEvent(events.EventPlayerConnected, "server-2", nil)
	require.NoError(t, orchestrator.OnEvent(context.Background(), event))

	executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, executions)
	assert.Empty(t, kick.calls())
}

func TestOnEventRecordsFailedOutcome(t *testing.T) {
	boom := &scriptedFactory{
		id: "kick_player",
		fn: func(_ map[string]any, _ *models.ExecutionContext) (any, error) {
			return nil, errors.New("rcon unreachable")
		},
	}

	orchestrator, p, _ := newTestOrchestrator(t, boom)
	saveWorkflow(t, p, kickWorkflow(true))

	event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", nil)
	require.NoError(t, orchestrator.OnEvent(context.Background(), event))
	orchestrator.Drain()

	executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 1)

	execution := executions[0]
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "rcon unreachable")
	assert.NotNil(t, execution.CompletedAt)
}

func TestOnEventPublishesLifecycleEvents(t *testing.T) {
	kick := okFactory("kick_player")

	orchestrator, p, bus := newTestOrchestrator(t, kick)
	saveWorkflow(t, p, kickWorkflow(true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []events.EventType
	)

	record := func(eventType events.EventType) eventbus.EventHandler {
		return func(_ context.Context, _ any) error {
			mu.Lock()
			received = append(received, eventType)
			mu.Unlock()

			return nil
		}
	}

	require.NoError(t, bus.Handle(events.ExecutionStartedEvent, record(events.ExecutionStartedEvent)))
	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, record(events.ExecutionCompletedEvent)))
	require.NoError(t, bus.Subscribe(ctx))

	event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", nil)
	require.NoError(t, orchestrator.OnEvent(context.Background(), event))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		started := 0
		completed := 0

		for _, eventType := range received {
			switch eventType {
			case events.ExecutionStartedEvent:
				started++
			case events.ExecutionCompletedEvent:
				completed++
			}
		}

		return started == 1 && completed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOnEventEditsDoNotAffectRunningExecutions(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	var once sync.Once

	slow := &scriptedFactory{
		id: "kick_player",
		fn: func(_ map[string]any, _ *models.ExecutionContext) (any, error) {
			once.Do(func() { close(entered) })
			<-release

			return map[string]any{"ok": true}, nil
		},
	}

	orchestrator, p, _ := newTestOrchestrator(t, slow)

	workflow := kickWorkflow(true)
	saveWorkflow(t, p, workflow)

	event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", nil)
	require.NoError(t, orchestrator.OnEvent(context.Background(), event))

	<-entered

	// Disable the workflow mid-flight. The running execution owns its own
	// definition snapshot and must still finish.
	workflow.Enabled = false
	saveWorkflow(t, p, workflow)

	close(release)
	orchestrator.Drain()

	executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, executions[0].Status)
}

func TestOnEventDispatchesWhileExecutionsAreInFlight(t *testing.T) {
	release := make(chan struct{})

	gate := &scriptedFactory{
		id: "kick_player",
		fn: func(params map[string]any, _ *models.ExecutionContext) (any, error) {
			if params["player_id"] == "steam:slow" {
				<-release
			}

			return map[string]any{"ok": true}, nil
		},
	}

	orchestrator, p, bus := newTestOrchestrator(t, gate)
	saveWorkflow(t, p, kickWorkflow(true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, orchestrator.Start(ctx))

	for _, steamID := range []string{"steam:slow", "steam:fast"} {
		event := events.NewTriggerEvent(events.EventPlayerConnected, "server-1", map[string]any{
			"steam_id": steamID,
		})
		require.NoError(t, bus.Publish(ctx, event.ID, event))
	}

	statusFor := func(steamID string) models.ExecutionStatus {
		executions, err := p.ExecutionRepository().ListExecutions(context.Background(), "wf-kick", persistence.ListOptions{})
		if err != nil {
			return ""
		}

		for _, execution := range executions {
			if execution.TriggerData["steam_id"] == steamID {
				return execution.Status
			}
		}

		return ""
	}

	// The second event must reach a terminal state while the first execution
	// is still parked inside its action.
	assert.Eventually(t, func() bool {
		return statusFor("steam:fast") == models.ExecutionStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.ExecutionStatusRunning, statusFor("steam:slow"))

	close(release)
	orchestrator.Drain()

	assert.Equal(t, models.ExecutionStatusCompleted, statusFor("steam:slow"))
}
