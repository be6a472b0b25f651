// Package web provides the REST API: workflow listing, execution inspection,
// manual triggering, cancellation and the webhook ingress endpoint.
package web

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

// Trigger routes webhook and manual firings. Satisfied by the dispatcher.
type Trigger interface {
	DispatchWebhook(ctx context.Context, webhookID string, body map[string]any) (int, error)
	DispatchManual(ctx context.Context, workflowID string, data map[string]any) (*models.WorkflowExecution, error)
}

// Canceller cancels executions. Satisfied by the engine.
type Canceller interface {
	Cancel(ctx context.Context, executionID string) error
}

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	trigger     Trigger
	canceller   Canceller
}

func NewAPIHandlers(
	logger *slog.Logger,
	persist persistence.Persistence,
	trigger Trigger,
	canceller Canceller,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "web"),
		persistence: persist,
		trigger:     trigger,
		canceller:   canceller,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().Workflows(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowRepository().WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var workflow models.Workflow
	if err := json.Unmarshal(c.Body(), &workflow); err != nil {
		return badRequest(c, "invalid workflow body: "+err.Error())
	}

	if err := h.persistence.WorkflowRepository().SaveWorkflow(c.Context(), &workflow); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

// TriggerWorkflow starts one execution of the workflow synchronously and
// returns the finished execution record.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	var req TriggerRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "invalid trigger body: "+err.Error())
		}
	}

	execution, err := h.trigger.DispatchManual(c.Context(), c.Params("id"), req.Data)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

// Webhook acknowledges an inbound call after starting the matching
// executions. Zero matches still answer 200; the caller learns the match
// count, not the execution outcomes.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	var body map[string]any
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return badRequest(c, "invalid webhook body: "+err.Error())
		}
	}

	count, err := h.trigger.DispatchWebhook(c.Context(), c.Params("webhookID"), body)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(WebhookResponse{Success: true, WorkflowsTriggered: count})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	workflowID := c.Query("workflow_id")
	if workflowID == "" {
		return badRequest(c, "workflow_id query parameter is required")
	}

	executions, err := h.persistence.ExecutionRepository().ExecutionsByWorkflow(c.Context(), workflowID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	executions := h.persistence.ExecutionRepository()

	execution, err := executions.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	steps, err := executions.StepExecutionsByExecution(c.Context(), execution.ID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ExecutionResponse{WorkflowExecution: execution, Steps: steps})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	if err := h.canceller.Cancel(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
