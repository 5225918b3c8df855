// Package web provides HTTP handlers and REST API endpoints for automation rules,
// workflows and module relationships.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/integration"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/dukex/qmsflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine       *rules.Engine
	orchestrator *workflow.Orchestrator
	integration  *integration.Service
	records      persistence.RecordStore
	publisher    eventbus.EventPublisher
	validator    *validator.Validate
}

// NewAPIHandlers creates the handlers. publisher may be nil, in which case
// events are always processed synchronously.
func NewAPIHandlers(
	engine *rules.Engine,
	orchestrator *workflow.Orchestrator,
	integrationService *integration.Service,
	records persistence.RecordStore,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:       engine,
		orchestrator: orchestrator,
		integration:  integrationService,
		records:      records,
		publisher:    publisher,
		validator:    validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	r := router.Group("/rules")
	r.Get("/", h.GetRules)
	r.Post("/", h.CreateRule)
	r.Get("/:id", h.GetRule)
	r.Patch("/:id", h.UpdateRule)
	r.Delete("/:id", h.DeleteRule)

	router.Post("/events", h.ProcessEvent)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/triggers", h.CheckTriggers)
	w.Get("/:id", h.GetWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/tasks", h.GetPendingTasks)

	router.Post("/relationships", h.CreateRelationship)
	router.Get("/relationships", h.GetRelationships)
	router.Post("/integrations/:workflowType", h.TriggerIntegration)
	router.Post("/suggestions", h.GetSuggestions)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	list, err := h.engine.GetRules(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(list)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.engine.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.engine.AddRule(c.Context(), req.Rule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")

	var patch models.RulePatch
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(patch); err != nil {
		return badRequest(c, err.Error())
	}

	found, err := h.engine.UpdateRule(c.Context(), id, patch)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !found {
		return notFound(c, "rule_not_found", "rule not found")
	}

	updated, err := h.engine.GetRule(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	found, err := h.engine.DeleteRule(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	if !found {
		return notFound(c, "rule_not_found", "rule not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ProcessEvent runs the rules engine on a domain event. With ?async=true the
// event is published to the event bus for a worker and 202 is returned.
func (h *APIHandlers) ProcessEvent(c fiber.Ctx) error {
	var req ProcessEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	async, err := parseBool(c.Query("async"))
	if err != nil {
		return badRequest(c, "Invalid async parameter")
	}

	if async {
		if h.publisher == nil {
			return badRequest(c, "Asynchronous processing is not configured")
		}

		event := events.NewDomainEvent(req.Module, req.Event, req.Data)

		err := h.publisher.Publish(c.Context(), models.StringOf(req.Data["id"]), event)
		if err != nil {
			return internalError(c, err)
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": event.ID})
	}

	return c.JSON(h.engine.ProcessEvent(c.Context(), req.Module, req.Event, req.Data))
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	templates, err := h.orchestrator.GetAvailableWorkflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	template, err := h.orchestrator.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.orchestrator.Execute(c.Context(), workflow.Request{
		WorkflowID: c.Params("id"),
		SourceID:   req.SourceID,
		SourceType: req.SourceType,
		Data:       req.Data,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CheckTriggers(c fiber.Ctx) error {
	var req CheckTriggersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{
		"workflows": h.orchestrator.CheckTriggerConditions(c.Context(), req.ModuleType, req.Event, req.Data),
	})
}

func (h *APIHandlers) GetPendingTasks(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.orchestrator.GetWorkflow(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	tasks, err := h.orchestrator.PendingTasks(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(tasks)
}

func (h *APIHandlers) CreateRelationship(c fiber.Ctx) error {
	var req CreateRelationshipRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	id, err := h.integration.CreateRelationship(c.Context(), req.Relationship())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *APIHandlers) GetRelationships(c fiber.Ctx) error {
	sourceID := c.Query("source_id")
	sourceType := c.Query("source_type")

	if sourceID == "" || sourceType == "" {
		return badRequest(c, "source_id and source_type are required")
	}

	return c.JSON(h.integration.GetRelatedItems(c.Context(), sourceID, sourceType, c.Query("target_type")))
}

func (h *APIHandlers) TriggerIntegration(c fiber.Ctx) error {
	var req TriggerIntegrationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflowType := c.Params("workflowType")

	triggered, err := h.integration.TriggerWorkflow(c.Context(), req.SourceModule, req.SourceID, workflowType, req.Data)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !triggered {
		return notFound(c, "workflow_not_found", "unknown workflow type "+workflowType)
	}

	return c.JSON(fiber.Map{"triggered": true})
}

func (h *APIHandlers) GetSuggestions(c fiber.Ctx) error {
	var req SuggestionsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{
		"suggestions": integration.GetWorkflowSuggestions(req.ModuleType, req.Status, req.Data),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "qmsflow API is healthy"
	httpStatus := http.StatusOK
	storeCheck := "ok"

	if err := h.records.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "qmsflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		storeCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"record_store": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}

	return strconv.ParseBool(raw)
}
