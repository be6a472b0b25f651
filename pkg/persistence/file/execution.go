package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

// ExecutionRepository stores one file per execution and per step execution.
// Each record is its own file, so concurrent executions never touch the same
// path.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) executionPath(id string) string {
	return filepath.Join(r.root, "executions", id+".json")
}

func (r *ExecutionRepository) stepDir(executionID string) string {
	return filepath.Join(r.root, "step_executions", executionID)
}

func (r *ExecutionRepository) CreateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	if err := writeJSON(r.executionPath(execution.ID), execution); err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	path := r.executionPath(execution.ID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return persistence.ErrExecutionNotFound
	}

	if err := writeJSON(path, execution); err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	if err := readJSON(r.executionPath(id), &execution); err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(filepath.Join(r.root, "executions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		var execution models.WorkflowExecution
		if err := readJSON(filepath.Join(r.root, "executions", file), &execution); err != nil {
			return nil, persistence.NewStoreError("ExecutionsByWorkflow", workflowID, err)
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, &execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *ExecutionRepository) CreateStepExecution(_ context.Context, stepExecution *models.StepExecution) error {
	path := filepath.Join(r.stepDir(stepExecution.ExecutionID), stepExecution.ID+".json")

	if err := writeJSON(path, stepExecution); err != nil {
		return persistence.NewStoreError("CreateStepExecution", stepExecution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateStepExecution(_ context.Context, stepExecution *models.StepExecution) error {
	path := filepath.Join(r.stepDir(stepExecution.ExecutionID), stepExecution.ID+".json")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return persistence.ErrStepExecutionNotFound
	}

	if err := writeJSON(path, stepExecution); err != nil {
		return persistence.NewStoreError("UpdateStepExecution", stepExecution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) StepExecutionsByExecution(_ context.Context, executionID string) ([]*models.StepExecution, error) {
	dir := r.stepDir(executionID)

	root := os.DirFS(dir)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list step execution files: %w", err)
	}

	stepExecutions := make([]*models.StepExecution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		var stepExecution models.StepExecution
		if err := readJSON(filepath.Join(dir, file), &stepExecution); err != nil {
			return nil, persistence.NewStoreError("StepExecutionsByExecution", executionID, err)
		}

		stepExecutions = append(stepExecutions, &stepExecution)
	}

	sort.Slice(stepExecutions, func(i, j int) bool {
		return stepExecutions[i].StepNumber < stepExecutions[j].StepNumber
	})

	return stepExecutions, nil
}
