// Package models defines the core domain models for the moderation workflow engine.
package models

import "time"

// Workflow is a named automation unit owned by one game server. It is
// soft-enabled/disabled via the Enabled flag and never auto-deleted.
type Workflow struct {
	ID          string              `json:"id"`
	ServerID    string              `json:"server_id"   validate:"required"`
	Name        string              `json:"name"        validate:"required,min=3"`
	Description string              `json:"description"`
	Enabled     bool                `json:"enabled"`
	Definition  *WorkflowDefinition `json:"definition"  validate:"required"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
