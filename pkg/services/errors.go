// Package services holds the business operations behind the HTTP API:
// workflow CRUD with definition validation, execution queries and the
// workflow-scoped KV store.
package services

import (
	"errors"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

// Validation errors map to HTTP 400.
var (
	ErrWorkflowNil        = errors.New("workflow cannot be nil")
	ErrServerIDRequired   = errors.New("server id is required")
	ErrNameRequired       = errors.New("workflow name must be at least 3 characters")
	ErrDefinitionRequired = errors.New("workflow definition is required")
	ErrKeyRequired        = errors.New("key is required")
	ErrInvalidTTL         = errors.New("ttl_seconds cannot be negative")
)

// Not-found sentinels re-exported so handlers depend on one package.
var (
	ErrWorkflowNotFound  = persistence.ErrWorkflowNotFound
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// IsValidationError reports whether the error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrServerIDRequired) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrDefinitionRequired) ||
		errors.Is(err, ErrKeyRequired) ||
		errors.Is(err, ErrInvalidTTL) ||
		errors.Is(err, models.ErrInvalidDefinition) ||
		errors.Is(err, models.ErrUnknownDefinitionVersion)
}

// IsNotFound reports whether the error should surface as HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, persistence.ErrWorkflowNotFound) ||
		errors.Is(err, persistence.ErrExecutionNotFound)
}
