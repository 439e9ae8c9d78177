// Package persistence provides the data storage abstraction layer for
// workflows, executions and their step logs.
package persistence

import (
	"context"

	"github.com/wardenhq/warden/pkg/models"
)

// ListOptions paginates list queries. Zero Limit means the repository
// default; Offset is always applied.
type ListOptions struct {
	Limit  int
	Offset int
}

const DefaultListLimit = 100

// LimitOrDefault returns the effective page size.
func (o ListOptions) LimitOrDefault() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}

	return o.Limit
}

type WorkflowRepository interface {
	// ListByServer returns all workflows owned by a game server.
	ListByServer(ctx context.Context, serverID string) ([]*models.Workflow, error)

	// ListEnabledByServer returns only workflows eligible for triggering.
	ListEnabledByServer(ctx context.Context, serverID string) ([]*models.Workflow, error)

	// GetByID returns a workflow or ErrWorkflowNotFound.
	GetByID(ctx context.Context, serverID, workflowID string) (*models.Workflow, error)

	// Save inserts or fully replaces a workflow.
	Save(ctx context.Context, workflow *models.Workflow) error

	// Delete removes a workflow. Deleting a missing workflow is not an error.
	Delete(ctx context.Context, serverID, workflowID string) error
}

type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error

	// UpdateExecution writes the current status, completion time and error
	// of an existing execution row.
	UpdateExecution(ctx context.Context, execution *models.Execution) error

	// GetExecution returns an execution or ErrExecutionNotFound.
	GetExecution(ctx context.Context, executionID string) (*models.Execution, error)

	// ListExecutions returns executions for a workflow, newest first.
	ListExecutions(ctx context.Context, workflowID string, opts ListOptions) ([]*models.Execution, error)

	// AppendStepLog appends one step log row. Rows are never updated in
	// place; a step attempt produces a running row and later a terminal row.
	AppendStepLog(ctx context.Context, log *models.ExecutionLog) error

	// ListStepLogs returns an execution's step rows ordered by step_order,
	// then attempt, with running rows before terminal rows of the same
	// attempt.
	ListStepLogs(ctx context.Context, executionID string, opts ListOptions) ([]*models.ExecutionLog, error)

	AppendLogMessage(ctx context.Context, message *models.LogMessage) error

	// ListLogMessages returns an execution's free-text messages in log
	// time order.
	ListLogMessages(ctx context.Context, executionID string, opts ListOptions) ([]*models.LogMessage, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
