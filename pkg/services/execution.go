package services

import (
	"context"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

// Execution implements the read side of execution history: executions per
// workflow, the append-only step log and the free-text message stream.
type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(p persistence.Persistence) *Execution {
	return &Execution{persistence: p}
}

// Get returns one execution, scoped to the server and workflow in the
// request path. An execution reached through another workflow's path is
// reported as not found rather than leaked.
func (e *Execution) Get(ctx context.Context, serverID, workflowID, executionID string) (*models.Execution, error) {
	if _, err := e.persistence.WorkflowRepository().GetByID(ctx, serverID, workflowID); err != nil {
		return nil, err
	}

	execution, err := e.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.WorkflowID != workflowID {
		return nil, persistence.ErrExecutionNotFound
	}

	return execution, nil
}

// List returns a workflow's executions newest first. The workflow must exist.
func (e *Execution) List(ctx context.Context, serverID, workflowID string, opts persistence.ListOptions) ([]*models.Execution, error) {
	if _, err := e.persistence.WorkflowRepository().GetByID(ctx, serverID, workflowID); err != nil {
		return nil, err
	}

	return e.persistence.ExecutionRepository().ListExecutions(ctx, workflowID, opts)
}

// Logs returns an execution's step rows in display order.
func (e *Execution) Logs(ctx context.Context, serverID, workflowID, executionID string, opts persistence.ListOptions) ([]*models.ExecutionLog, error) {
	if _, err := e.Get(ctx, serverID, workflowID, executionID); err != nil {
		return nil, err
	}

	return e.persistence.ExecutionRepository().ListStepLogs(ctx, executionID, opts)
}

// Messages returns an execution's free-text log messages in time order.
func (e *Execution) Messages(ctx context.Context, serverID, workflowID, executionID string, opts persistence.ListOptions) ([]*models.LogMessage, error) {
	if _, err := e.Get(ctx, serverID, workflowID, executionID); err != nil {
		return nil, err
	}

	return e.persistence.ExecutionRepository().ListLogMessages(ctx, executionID, opts)
}
