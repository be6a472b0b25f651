package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	payload, err := marshalJSONB(execution.TriggerPayload)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, status, trigger_payload, started_at, completed_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, execution.ID, execution.WorkflowID, string(execution.Status), payload,
		execution.StartedAt, execution.CompletedAt, execution.ErrorMessage)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $2, completed_at = $3, error_message = $4
		WHERE id = $1
	`, execution.ID, string(execution.Status), execution.CompletedAt, execution.ErrorMessage)
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, trigger_payload, started_at, completed_at, error_message
		FROM workflow_executions WHERE id = $1
	`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, status, trigger_payload, started_at, completed_at, error_message
		FROM workflow_executions WHERE workflow_id = $1 ORDER BY started_at
	`, workflowID)
	if err != nil {
		return nil, persistence.NewStoreError("ExecutionsByWorkflow", workflowID, err)
	}
	defer rows.Close()

	var executions []*models.WorkflowExecution

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewStoreError("ExecutionsByWorkflow", workflowID, err)
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

func (r *ExecutionRepository) CreateStepExecution(ctx context.Context, stepExecution *models.StepExecution) error {
	inputContext, err := marshalJSONB(stepExecution.InputContext)
	if err != nil {
		return persistence.NewStoreError("CreateStepExecution", stepExecution.ID, err)
	}

	outputData, err := marshalJSONB(stepExecution.OutputData)
	if err != nil {
		return persistence.NewStoreError("CreateStepExecution", stepExecution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO step_executions
			(id, execution_id, step_id, step_number, status, input_context, output_data, error_message, retry_count, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, stepExecution.ID, stepExecution.ExecutionID, stepExecution.StepID, stepExecution.StepNumber,
		string(stepExecution.Status), inputContext, outputData, stepExecution.ErrorMessage,
		stepExecution.RetryCount, stepExecution.StartedAt, stepExecution.CompletedAt)
	if err != nil {
		return persistence.NewStoreError("CreateStepExecution", stepExecution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateStepExecution(ctx context.Context, stepExecution *models.StepExecution) error {
	outputData, err := marshalJSONB(stepExecution.OutputData)
	if err != nil {
		return persistence.NewStoreError("UpdateStepExecution", stepExecution.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE step_executions
		SET status = $2, output_data = $3, error_message = $4, retry_count = $5, completed_at = $6
		WHERE id = $1
	`, stepExecution.ID, string(stepExecution.Status), outputData,
		stepExecution.ErrorMessage, stepExecution.RetryCount, stepExecution.CompletedAt)
	if err != nil {
		return persistence.NewStoreError("UpdateStepExecution", stepExecution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("UpdateStepExecution", stepExecution.ID, err)
	}

	if affected == 0 {
		return persistence.ErrStepExecutionNotFound
	}

	return nil
}

func (r *ExecutionRepository) StepExecutionsByExecution(ctx context.Context, executionID string) ([]*models.StepExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, step_id, step_number, status, input_context, output_data, error_message, retry_count, started_at, completed_at
		FROM step_executions WHERE execution_id = $1 ORDER BY step_number
	`, executionID)
	if err != nil {
		return nil, persistence.NewStoreError("StepExecutionsByExecution", executionID, err)
	}
	defer rows.Close()

	var stepExecutions []*models.StepExecution

	for rows.Next() {
		var (
			stepExecution models.StepExecution
			status        string
			inputContext  []byte
			outputData    []byte
		)

		err := rows.Scan(&stepExecution.ID, &stepExecution.ExecutionID, &stepExecution.StepID,
			&stepExecution.StepNumber, &status, &inputContext, &outputData,
			&stepExecution.ErrorMessage, &stepExecution.RetryCount,
			&stepExecution.StartedAt, &stepExecution.CompletedAt)
		if err != nil {
			return nil, persistence.NewStoreError("StepExecutionsByExecution", executionID, err)
		}

		stepExecution.Status = models.StepStatus(status)

		if err := unmarshalJSONB(inputContext, &stepExecution.InputContext); err != nil {
			return nil, persistence.NewStoreError("StepExecutionsByExecution", executionID, err)
		}

		if err := unmarshalJSONB(outputData, &stepExecution.OutputData); err != nil {
			return nil, persistence.NewStoreError("StepExecutionsByExecution", executionID, err)
		}

		stepExecutions = append(stepExecutions, &stepExecution)
	}

	return stepExecutions, rows.Err()
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution models.WorkflowExecution
		status    string
		payload   []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &status, &payload,
		&execution.StartedAt, &execution.CompletedAt, &execution.ErrorMessage)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	if err := unmarshalJSONB(payload, &execution.TriggerPayload); err != nil {
		return nil, err
	}

	return &execution, nil
}
