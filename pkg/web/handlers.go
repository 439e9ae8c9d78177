// Package web provides the REST API for the moderation dashboard: workflow
// management, execution history, the workflow KV store and the event ingest
// endpoint.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/wardenhq/warden/pkg/eventbus"
	"github.com/wardenhq/warden/pkg/ingest"
	"github.com/wardenhq/warden/pkg/persistence"
	"github.com/wardenhq/warden/pkg/registry"
	"github.com/wardenhq/warden/pkg/services"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	kvService        *services.KV
	publisher        eventbus.EventPublisher
	registry         *registry.Registry
	validator        *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	kvService *services.KV,
	publisher eventbus.EventPublisher,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		kvService:        kvService,
		publisher:        publisher,
		registry:         reg,
		validator:        validate,
	}
}

// RegisterRoutes attaches every API route to the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := h.workflowService.HealthCheck(c.Context())

			return ok
		},
	}))

	servers := app.Group("/servers/:serverID")
	servers.Post("/events", h.IngestEvent)

	workflows := servers.Group("/workflows")
	workflows.Get("/", h.ListWorkflows)
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/:workflowID", h.GetWorkflow)
	workflows.Put("/:workflowID", h.ReplaceWorkflow)
	workflows.Patch("/:workflowID/enabled", h.SetWorkflowEnabled)
	workflows.Delete("/:workflowID", h.DeleteWorkflow)
	executions := workflows.Group("/:workflowID/executions")
	executions.Get("/", h.ListExecutions)
	executions.Get("/:executionID", h.GetExecution)
	executions.Get("/:executionID/logs", h.ListExecutionLogs)
	executions.Get("/:executionID/messages", h.ListExecutionMessages)

	kv := workflows.Group("/:workflowID/kv")
	kv.Get("/", h.ListKV)
	kv.Get("/:key", h.GetKV)
	kv.Put("/:key", h.SetKV)
	kv.Delete("/:key", h.DeleteKV)
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), c.Params("serverID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	return h.saveWorkflow(c, "", fiber.StatusCreated)
}

func (h *APIHandlers) ReplaceWorkflow(c fiber.Ctx) error {
	return h.saveWorkflow(c, c.Params("workflowID"), fiber.StatusOK)
}

func (h *APIHandlers) saveWorkflow(c fiber.Ctx, workflowID string, successStatus int) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Save(c.Context(), services.SaveWorkflowRequest{
		ServerID:    c.Params("serverID"),
		WorkflowID:  workflowID,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		CreatedBy:   req.CreatedBy,
		Definition:  req.Definition,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(successStatus).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Get(c.Context(), c.Params("serverID"), c.Params("workflowID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SetWorkflowEnabled(c fiber.Ctx) error {
	var req SetEnabledRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.SetEnabled(c.Context(), c.Params("serverID"), c.Params("workflowID"), *req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("serverID"), c.Params("workflowID")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	opts, err := parseListOptions(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	executions, err := h.executionService.List(c.Context(), c.Params("serverID"), c.Params("workflowID"), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"pagination": fiber.Map{"limit": opts.LimitOrDefault(), "offset": opts.Offset},
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.Get(c.Context(), c.Params("serverID"), c.Params("workflowID"), c.Params("executionID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ListExecutionLogs(c fiber.Ctx) error {
	opts, err := parseListOptions(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	logs, err := h.executionService.Logs(c.Context(), c.Params("serverID"), c.Params("workflowID"), c.Params("executionID"), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":       logs,
		"pagination": fiber.Map{"limit": opts.LimitOrDefault(), "offset": opts.Offset},
	})
}

func (h *APIHandlers) ListExecutionMessages(c fiber.Ctx) error {
	opts, err := parseListOptions(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	messages, err := h.executionService.Messages(c.Context(), c.Params("serverID"), c.Params("workflowID"), c.Params("executionID"), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": fiber.Map{"limit": opts.LimitOrDefault(), "offset": opts.Offset},
	})
}

func (h *APIHandlers) ListKV(c fiber.Ctx) error {
	if err := h.requireWorkflow(c); err != nil {
		return handleServiceError(c, err)
	}

	entries, err := h.kvService.List(c.Context(), c.Params("workflowID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

func (h *APIHandlers) GetKV(c fiber.Ctx) error {
	if err := h.requireWorkflow(c); err != nil {
		return handleServiceError(c, err)
	}

	value, found, err := h.kvService.Get(c.Context(), c.Params("workflowID"), c.Params("key"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if !found {
		return notFound(c, "key not found")
	}

	return c.JSON(fiber.Map{"key": c.Params("key"), "value": value})
}

func (h *APIHandlers) SetKV(c fiber.Ctx) error {
	if err := h.requireWorkflow(c); err != nil {
		return handleServiceError(c, err)
	}

	var req KVSetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.kvService.Set(c.Context(), c.Params("workflowID"), c.Params("key"), req.Value, req.TTLSeconds)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeleteKV(c fiber.Ctx) error {
	if err := h.requireWorkflow(c); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.kvService.Delete(c.Context(), c.Params("workflowID"), c.Params("key")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// IngestEvent accepts one raw game event, normalizes it and hands it to the
// engine through the event bus. Rejected events are a client error, not a
// silent drop, so log shipper misconfiguration is visible.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event, err := ingest.Normalize(req.EventType, c.Params("serverID"), req.Payload)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.publisher.Publish(c.Context(), event.ID, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": event.ID})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	persistenceCheck, perOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && perOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":    registryCheck,
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// requireWorkflow guards KV routes: the workflow must exist and belong to
// the server in the path.
func (h *APIHandlers) requireWorkflow(c fiber.Ctx) error {
	_, err := h.workflowService.Get(c.Context(), c.Params("serverID"), c.Params("workflowID"))

	return err
}

func parseListOptions(c fiber.Ctx) (persistence.ListOptions, error) {
	var opts persistence.ListOptions

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return opts, err
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return opts, err
		}

		opts.Offset = offset
	}

	return opts, nil
}
