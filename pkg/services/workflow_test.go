package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/pkg/kv"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/persistence/file"
)

const validDefinition = `{
	"version": 1,
	"triggers": [
		{"id": "t-1", "event_type": "LOG_PLAYER_CONNECTED", "enabled": true}
	],
	"steps": [
		{
			"id": "kick",
			"type": "action",
			"enabled": true,
			"config": {"action_type": "kick_player", "params": {"player_id": "{{ .trigger.steam_id }}"}}
		}
	]
}`

func newWorkflowService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewWorkflow(p), p
}

func saveRequest() SaveWorkflowRequest {
	return SaveWorkflowRequest{
		ServerID:   "server-1",
		Name:       "kick on connect",
		Enabled:    true,
		CreatedBy:  "admin@example.com",
		Definition: json.RawMessage(validDefinition),
	}
}

func TestSaveCreatesWorkflowWithGeneratedID(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow, err := service.Save(context.Background(), saveRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "server-1", workflow.ServerID)
	assert.True(t, workflow.Enabled)
	require.NotNil(t, workflow.Definition)
	assert.Len(t, workflow.Definition.Steps, 1)

	stored, err := service.Get(context.Background(), "server-1", workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, stored.Name)
}

func TestSaveWithIDIsIdempotentReplace(t *testing.T) {
	service, _ := newWorkflowService(t)

	created, err := service.Save(context.Background(), saveRequest())
	require.NoError(t, err)

	update := saveRequest()
	update.WorkflowID = created.ID
	update.Name = "kick on connect v2"
	update.CreatedBy = ""

	updated, err := service.Save(context.Background(), update)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "kick on connect v2", updated.Name)
	assert.Equal(t, "admin@example.com", updated.CreatedBy)

	workflows, err := service.List(context.Background(), "server-1")
	require.NoError(t, err)
	assert.Len(t, workflows, 1)
}

func TestSaveRejectsInvalidRequests(t *testing.T) {
	service, _ := newWorkflowService(t)

	missing := saveRequest()
	missing.ServerID = ""
	_, err := service.Save(context.Background(), missing)
	assert.ErrorIs(t, err, ErrServerIDRequired)

	short := saveRequest()
	short.Name = "ab"
	_, err = service.Save(context.Background(), short)
	assert.ErrorIs(t, err, ErrNameRequired)

	empty := saveRequest()
	empty.Definition = nil
	_, err = service.Save(context.Background(), empty)
	assert.ErrorIs(t, err, ErrDefinitionRequired)

	assert.True(t, IsValidationError(ErrNameRequired))
}

func TestSaveRejectsInvalidDefinition(t *testing.T) {
	service, _ := newWorkflowService(t)

	bad := saveRequest()
	bad.Definition = json.RawMessage(`{"version": 1, "triggers": [], "steps": [{"id": "x", "type": "warp"}]}`)

	_, err := service.Save(context.Background(), bad)

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestSaveRejectsUnknownDefinitionVersion(t *testing.T) {
	service, _ := newWorkflowService(t)

	bad := saveRequest()
	bad.Definition = json.RawMessage(`{"version": 99, "triggers": [], "steps": []}`)

	_, err := service.Save(context.Background(), bad)

	assert.ErrorIs(t, err, models.ErrUnknownDefinitionVersion)
	assert.True(t, IsValidationError(err))
}

func TestSetEnabledFlipsFlagOnly(t *testing.T) {
	service, _ := newWorkflowService(t)

	created, err := service.Save(context.Background(), saveRequest())
	require.NoError(t, err)

	disabled, err := service.SetEnabled(context.Background(), "server-1", created.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.Equal(t, created.Name, disabled.Name)
}

func TestGetMissingWorkflowIsNotFound(t *testing.T) {
	service, _ := newWorkflowService(t)

	_, err := service.Get(context.Background(), "server-1", "ghost")

	assert.True(t, IsNotFound(err))
}

func TestDeleteMissingWorkflowSucceeds(t *testing.T) {
	service, _ := newWorkflowService(t)

	assert.NoError(t, service.Delete(context.Background(), "server-1", "ghost"))
}

func TestExecutionListRequiresWorkflow(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	service := NewExecution(p)

	_, err := service.List(context.Background(), "server-1", "ghost", persistence.ListOptions{})

	assert.True(t, IsNotFound(err))
}

func TestExecutionLogsRequireExecution(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	workflowService := NewWorkflow(p)
	created, err := workflowService.Save(context.Background(), saveRequest())
	require.NoError(t, err)

	service := NewExecution(p)

	_, err = service.Logs(context.Background(), "server-1", created.ID, "ghost", persistence.ListOptions{})
	assert.True(t, IsNotFound(err))

	_, err = service.Messages(context.Background(), "server-1", created.ID, "ghost", persistence.ListOptions{})
	assert.True(t, IsNotFound(err))
}

func TestExecutionGetIsScopedToWorkflowPath(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	workflowService := NewWorkflow(p)
	first, err := workflowService.Save(context.Background(), saveRequest())
	require.NoError(t, err)

	second := saveRequest()
	second.Name = "warn on teamkill"
	other, err := workflowService.Save(context.Background(), second)
	require.NoError(t, err)

	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: first.ID,
		ServerID:   "server-1",
		Status:     models.ExecutionStatusCompleted,
	}
	require.NoError(t, p.ExecutionRepository().CreateExecution(context.Background(), execution))

	service := NewExecution(p)

	found, err := service.Get(context.Background(), "server-1", first.ID, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", found.ID)

	_, err = service.Get(context.Background(), "server-1", other.ID, "exec-1")
	assert.True(t, IsNotFound(err))
}

func TestKVServiceValidatesAndStores(t *testing.T) {
	service := NewKV(kv.NewMemoryStore())

	ctx := context.Background()

	require.NoError(t, service.Set(ctx, "wf-1", "warn_count", 2, 0))

	value, found, err := service.Get(ctx, "wf-1", "warn_count")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, value)

	entries, err := service.List(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, service.Delete(ctx, "wf-1", "warn_count"))

	_, found, err = service.Get(ctx, "wf-1", "warn_count")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, service.Set(ctx, "wf-1", "", 1, 0), ErrKeyRequired)
	assert.ErrorIs(t, service.Set(ctx, "wf-1", "x", 1, -5), ErrInvalidTTL)

	_, _, err = service.Get(ctx, "wf-1", "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
