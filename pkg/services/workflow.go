package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

// Workflow implements the workflow CRUD operations. Definitions are parsed
// and validated at save time; a definition that fails validation never
// reaches storage.
type Workflow struct {
	persistence persistence.Persistence
}

func NewWorkflow(p persistence.Persistence) *Workflow {
	return &Workflow{persistence: p}
}

// HealthCheck reports the state of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "persistence layer is unhealthy: " + err.Error(), false
	}

	return "persistence layer is healthy", true
}

// SaveWorkflowRequest creates or fully replaces a workflow. An empty
// WorkflowID creates a new workflow; a set one makes the save idempotent.
type SaveWorkflowRequest struct {
	ServerID    string
	WorkflowID  string
	Name        string
	Description string
	Enabled     bool
	CreatedBy   string
	Definition  json.RawMessage
}

func (r SaveWorkflowRequest) validate() error {
	if r.ServerID == "" {
		return ErrServerIDRequired
	}

	if len(strings.TrimSpace(r.Name)) < 3 {
		return ErrNameRequired
	}

	if len(r.Definition) == 0 {
		return ErrDefinitionRequired
	}

	return nil
}

func (w *Workflow) Save(ctx context.Context, req SaveWorkflowRequest) (*models.Workflow, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	definition, err := models.ParseDefinition(req.Definition)
	if err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		ID:          req.WorkflowID,
		ServerID:    req.ServerID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     req.Enabled,
		Definition:  definition,
		CreatedBy:   req.CreatedBy,
	}

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate workflow id: %w", err)
		}

		workflow.ID = id.String()
	} else if existing, err := w.persistence.WorkflowRepository().GetByID(ctx, req.ServerID, req.WorkflowID); err == nil {
		workflow.CreatedAt = existing.CreatedAt

		if workflow.CreatedBy == "" {
			workflow.CreatedBy = existing.CreatedBy
		}
	} else if !errors.Is(err, persistence.ErrWorkflowNotFound) {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

func (w *Workflow) Get(ctx context.Context, serverID, workflowID string) (*models.Workflow, error) {
	if serverID == "" {
		return nil, ErrServerIDRequired
	}

	return w.persistence.WorkflowRepository().GetByID(ctx, serverID, workflowID)
}

func (w *Workflow) List(ctx context.Context, serverID string) ([]*models.Workflow, error) {
	if serverID == "" {
		return nil, ErrServerIDRequired
	}

	return w.persistence.WorkflowRepository().ListByServer(ctx, serverID)
}

// SetEnabled flips the soft enable flag without touching the definition.
func (w *Workflow) SetEnabled(ctx context.Context, serverID, workflowID string, enabled bool) (*models.Workflow, error) {
	workflow, err := w.Get(ctx, serverID, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.Enabled = enabled

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow. Deleting a missing workflow succeeds.
func (w *Workflow) Delete(ctx context.Context, serverID, workflowID string) error {
	if serverID == "" {
		return ErrServerIDRequired
	}

	return w.persistence.WorkflowRepository().Delete(ctx, serverID, workflowID)
}
