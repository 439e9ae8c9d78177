package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

func newTestPersistence(t *testing.T) persistence.Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func testWorkflow(serverID, workflowID string, enabled bool) *models.Workflow {
	return &models.Workflow{
		ID:       workflowID,
		ServerID: serverID,
		Name:     "Team kill warning",
		Enabled:  enabled,
		Definition: &models.WorkflowDefinition{
			Version: models.CurrentDefinitionVersion,
			Triggers: []*models.Trigger{
				{ID: "t1", EventType: "TEAM_KILL", Enabled: true},
			},
			Steps: []*models.Step{
				{ID: "s1", Type: models.StepTypeAction, Enabled: true, Config: map[string]any{
					"action_type": "admin_broadcast",
					"params":      map[string]any{"message": "no team killing"},
				}},
			},
		},
		CreatedBy: "admin-1",
	}
}

func TestWorkflowRepositorySaveAndGet(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflow := testWorkflow("server-1", "wf-1", true)
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	loaded, err := p.WorkflowRepository().GetByID(ctx, "server-1", "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", loaded.ID)
	assert.Equal(t, "server-1", loaded.ServerID)
	assert.Equal(t, "Team kill warning", loaded.Name)
	require.NotNil(t, loaded.Definition)
	require.Len(t, loaded.Definition.Triggers, 1)
	assert.Equal(t, "TEAM_KILL", loaded.Definition.Triggers[0].EventType)
	assert.False(t, loaded.CreatedAt.IsZero())
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestWorkflowRepositoryGetMissing(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.WorkflowRepository().GetByID(context.Background(), "server-1", "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepositoryScopedByServer(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, testWorkflow("server-1", "wf-1", true)))

	_, err := p.WorkflowRepository().GetByID(ctx, "server-2", "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepositoryListEnabled(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, testWorkflow("server-1", "wf-1", true)))
	require.NoError(t, p.WorkflowRepository().Save(ctx, testWorkflow("server-1", "wf-2", false)))
	require.NoError(t, p.WorkflowRepository().Save(ctx, testWorkflow("server-2", "wf-3", true)))

	all, err := p.WorkflowRepository().ListByServer(ctx, "server-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := p.WorkflowRepository().ListEnabledByServer(ctx, "server-1")
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "wf-1", enabled[0].ID)
}

func TestWorkflowRepositoryDelete(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, testWorkflow("server-1", "wf-1", true)))
	require.NoError(t, p.WorkflowRepository().Delete(ctx, "server-1", "wf-1"))

	_, err := p.WorkflowRepository().GetByID(ctx, "server-1", "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// deleting again is a no-op
	assert.NoError(t, p.WorkflowRepository().Delete(ctx, "server-1", "wf-1"))
}

func TestExecutionRepositoryCreateUpdateGet(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		ServerID:   "server-1",
		TriggerID:  "t1",
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
		TriggerData: map[string]any{
			"player_name": "Bob",
		},
	}

	require.NoError(t, repo.CreateExecution(ctx, execution))

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completedAt
	require.NoError(t, repo.UpdateExecution(ctx, execution))

	loaded, err := repo.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.CompletedAt)
	assert.Equal(t, "Bob", loaded.TriggerData["player_name"])
}

func TestExecutionRepositoryUpdateMissing(t *testing.T) {
	p := newTestPersistence(t)

	err := p.ExecutionRepository().UpdateExecution(context.Background(), &models.Execution{ID: "nope"})
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepositoryList(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	base := time.Now().UTC()

	for i, id := range []string{"exec-1", "exec-2", "exec-3"} {
		require.NoError(t, repo.CreateExecution(ctx, &models.Execution{
			ID:         id,
			WorkflowID: "wf-1",
			ServerID:   "server-1",
			Status:     models.ExecutionStatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, repo.CreateExecution(ctx, &models.Execution{
		ID:         "exec-other",
		WorkflowID: "wf-2",
		ServerID:   "server-1",
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  base,
	}))

	executions, err := repo.ListExecutions(ctx, "wf-1", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 3)
	assert.Equal(t, "exec-3", executions[0].ID) // newest first

	page, err := repo.ListExecutions(ctx, "wf-1", persistence.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "exec-2", page[0].ID)
	assert.Equal(t, "exec-1", page[1].ID)
}

func TestExecutionRepositoryStepLogOrdering(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	now := time.Now().UTC()

	// Step 1 succeeds on the second attempt; appended out of order on
	// purpose to verify sorting by step order, attempt, then status rank.
	rows := []*models.ExecutionLog{
		{ID: "l4", ExecutionID: "exec-1", StepOrder: 2, Attempt: 1, StepID: "s2", StepStatus: models.StepStatusCompleted, LoggedAt: now},
		{ID: "l1", ExecutionID: "exec-1", StepOrder: 1, Attempt: 1, StepID: "s1", StepStatus: models.StepStatusRunning, LoggedAt: now},
		{ID: "l3", ExecutionID: "exec-1", StepOrder: 1, Attempt: 2, StepID: "s1", StepStatus: models.StepStatusCompleted, LoggedAt: now},
		{ID: "l2", ExecutionID: "exec-1", StepOrder: 1, Attempt: 1, StepID: "s1", StepStatus: models.StepStatusFailed, LoggedAt: now},
		{ID: "l5", ExecutionID: "exec-1", StepOrder: 1, Attempt: 2, StepID: "s1", StepStatus: models.StepStatusRunning, LoggedAt: now},
	}

	for _, row := range rows {
		require.NoError(t, repo.AppendStepLog(ctx, row))
	}

	logs, err := repo.ListStepLogs(ctx, "exec-1", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 5)

	ids := make([]string, 0, len(logs))
	for _, log := range logs {
		ids = append(ids, log.ID)
	}

	assert.Equal(t, []string{"l1", "l2", "l5", "l3", "l4"}, ids)
}

func TestExecutionRepositoryLogMessages(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	repo := p.ExecutionRepository()

	base := time.Now().UTC()

	require.NoError(t, repo.AppendLogMessage(ctx, &models.LogMessage{
		ID:          "m1",
		ExecutionID: "exec-1",
		StepID:      "s1",
		LogTime:     base,
		Level:       models.LogLevelInfo,
		Message:     "warned player",
	}))
	require.NoError(t, repo.AppendLogMessage(ctx, &models.LogMessage{
		ID:          "m2",
		ExecutionID: "exec-1",
		StepID:      "s2",
		LogTime:     base.Add(time.Second),
		Level:       models.LogLevelError,
		Message:     "ban failed",
	}))

	messages, err := repo.ListLogMessages(ctx, "exec-1", persistence.ListOptions{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "warned player", messages[0].Message)
	assert.Equal(t, models.LogLevelError, messages[1].Level)

	empty, err := repo.ListLogMessages(ctx, "exec-none", persistence.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
