package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/fieldsuite/cadence/pkg/eventbus"
	"github.com/fieldsuite/cadence/pkg/events"
	"github.com/fieldsuite/cadence/pkg/models"
	"github.com/fieldsuite/cadence/pkg/persistence"
	"github.com/fieldsuite/cadence/pkg/registry"
	"github.com/fieldsuite/cadence/pkg/runner"
	"github.com/fieldsuite/cadence/pkg/trigger"
)

var knownTriggers = map[models.TriggerType]bool{
	models.TriggerClientCreated: true,
	models.TriggerJobScheduled:  true,
	models.TriggerJobCompleted:  true,
	models.TriggerQuoteSent:     true,
	models.TriggerQuoteAccepted: true,
	models.TriggerInvoiceSent:   true,
	models.TriggerInvoicePaid:   true,
}

type APIHandlers struct {
	store     persistence.Persistence
	intake    *trigger.Intake
	runner    *runner.Runner
	bus       eventbus.EventBus
	validator *validator.Validate
	registry  *registry.Registry
	logger    *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	intake *trigger.Intake,
	run *runner.Runner,
	bus eventbus.EventBus,
	validate *validator.Validate,
	reg *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		intake:    intake,
		runner:    run,
		bus:       bus,
		validator: validate,
		registry:  reg,
		logger:    logger.With("module", "web"),
	}
}

// IngestEvent accepts a business event and starts runs for matching
// workflows. The response lists the runs that were created; step execution
// happens asynchronously on the work queue.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !knownTriggers[req.Type] {
		return badRequest(c, fmt.Sprintf("unknown event type %q", req.Type))
	}

	occurred := time.Now().UTC()
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}

	runs, err := h.intake.HandleEvent(c.Context(), &models.BusinessEvent{
		Type:     req.Type,
		Entity:   models.EntityRef{Type: req.EntityType, ID: req.EntityID},
		Occurred: occurred,
	})
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, toRunSummary(run))
	}

	return c.Status(fiber.StatusAccepted).JSON(IngestEventResponse{Runs: summaries})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.store.Runs().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(run)
}

// AdvanceRun enqueues an advance job for a run instead of driving it
// inline, so API calls share the worker pool's lease and retry semantics.
func (h *APIHandlers) AdvanceRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.store.Runs().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	if run.Status.Terminal() {
		return conflict(c, fmt.Sprintf("run is %s and cannot advance", run.Status))
	}

	err = h.bus.Enqueue(c.Context(), events.RunAdvanceRequested{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + h.bus.GenerateID(),
			Type:       events.RunAdvanceRequestedEvent,
			Timestamp:  time.Now().UTC(),
			RunID:      run.ID,
			WorkflowID: run.WorkflowID,
		},
		Reason: "api",
	})
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toRunSummary(run))
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	err := h.runner.Cancel(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	run, err := h.store.Runs().GetByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(toRunSummary(run))
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.Workflows().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.store.Workflows().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if detail, ok := h.validateWorkflow(&req); !ok {
		return badRequest(c, detail)
	}

	now := time.Now().UTC()
	workflow := &models.WorkflowDefinition{
		ID:            "wf-" + uuid.New().String()[:8],
		Name:          req.Name,
		TriggerType:   req.TriggerType,
		TriggerFilter: req.TriggerFilter,
		Steps:         req.Steps,
		Enabled:       req.Enabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.Workflows().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	existing, err := h.store.Workflows().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if detail, ok := h.validateWorkflow(&req); !ok {
		return badRequest(c, detail)
	}

	existing.Name = req.Name
	existing.TriggerType = req.TriggerType
	existing.TriggerFilter = req.TriggerFilter
	existing.Steps = req.Steps
	existing.Enabled = req.Enabled
	existing.UpdatedAt = time.Now().UTC()

	if err := h.store.Workflows().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.store.Workflows().Delete(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"kinds":     h.registry.Kinds(),
		"timestamp": time.Now().UTC(),
	})
}

// validateWorkflow enforces everything that must hold before a definition
// is accepted: struct-level constraints, a known trigger type, registered
// step kinds with schema-valid configs, unique step ids, and condition
// field references the evaluator actually knows.
func (h *APIHandlers) validateWorkflow(req *SaveWorkflowRequest) (string, bool) {
	if err := h.validator.Struct(req); err != nil {
		return err.Error(), false
	}

	if !knownTriggers[req.TriggerType] {
		return fmt.Sprintf("unknown trigger type %q", req.TriggerType), false
	}

	if detail, ok := validateConditionGroup("trigger_filter", req.TriggerFilter); !ok {
		return detail, false
	}

	seen := make(map[string]bool, len(req.Steps))

	for i, step := range req.Steps {
		if step.ID == "" {
			return fmt.Sprintf("step %d: id is required", i), false
		}

		if seen[step.ID] {
			return fmt.Sprintf("step %d: duplicate step id %q", i, step.ID), false
		}

		seen[step.ID] = true

		if err := h.registry.ValidateConfig(step.Kind, step.Config); err != nil {
			return fmt.Sprintf("step %q: %v", step.ID, err), false
		}

		if detail, ok := validateConditionGroup("step "+step.ID, step.Conditions); !ok {
			return detail, false
		}
	}

	return "", true
}

func validateConditionGroup(where string, group *models.ConditionGroup) (string, bool) {
	if group == nil {
		return "", true
	}

	if group.Logic != models.LogicAnd && group.Logic != models.LogicOr &&
		group.Logic != "and" && group.Logic != "or" {
		return fmt.Sprintf("%s: unknown logic %q", where, group.Logic), false
	}

	for _, node := range group.Conditions {
		if node.Group != nil {
			if detail, ok := validateConditionGroup(where, node.Group); !ok {
				return detail, false
			}

			continue
		}

		if node.Leaf == nil {
			return fmt.Sprintf("%s: empty condition node", where), false
		}

		if !models.ValidFieldRef(node.Leaf.Resource, node.Leaf.Field) {
			return fmt.Sprintf("%s: unknown field reference %s.%s", where, node.Leaf.Resource, node.Leaf.Field), false
		}
	}

	return "", true
}
