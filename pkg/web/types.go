package web

import (
	"github.com/Acurioustractor/actflow/pkg/models"
)

// WebhookResponse acknowledges an inbound webhook call. The call is
// acknowledged once matching executions are started; their outcomes are not
// awaited.
type WebhookResponse struct {
	Success            bool `json:"success"`
	WorkflowsTriggered int  `json:"workflows_triggered"`
}

// TriggerRequest is the body of a manual trigger call.
type TriggerRequest struct {
	Data map[string]any `json:"data,omitempty"`
}

// ExecutionResponse pairs an execution with its step records.
type ExecutionResponse struct {
	*models.WorkflowExecution

	Steps []*models.StepExecution `json:"steps,omitempty"`
}
