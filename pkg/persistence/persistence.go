// Package persistence provides the storage abstraction for workflows and
// execution records.
package persistence

import (
	"context"

	"github.com/Acurioustractor/actflow/pkg/models"
)

// WorkflowRepository reads workflow definitions. Definitions are created and
// edited by operators out of band; the engine treats them as read-only.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	ActiveWorkflowsByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
}

// ExecutionRepository stores execution and step-execution records. Updates
// are per-row; two executions never contend for the same row.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)

	CreateStepExecution(ctx context.Context, stepExecution *models.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *models.StepExecution) error
	StepExecutionsByExecution(ctx context.Context, executionID string) ([]*models.StepExecution, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
