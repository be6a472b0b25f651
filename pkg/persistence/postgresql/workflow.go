package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `id, name, description, trigger_type, trigger_config, is_active, steps, created_at, updated_at`

func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) ActiveWorkflowsByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE is_active AND trigger_type = $1 ORDER BY created_at`,
		string(triggerType))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger type: %w", err)
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := workflow.Validate(); err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflow, err)
	}

	triggerConfig, err := marshalJSONB(workflow.TriggerConfig)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, trigger_type, trigger_config, is_active, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			is_active = EXCLUDED.is_active,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.Name, workflow.Description, string(workflow.TriggerType),
		triggerConfig, workflow.IsActive, steps, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerType   string
		triggerConfig []byte
		steps         []byte
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description, &triggerType,
		&triggerConfig, &workflow.IsActive, &steps, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	workflow.TriggerType = models.TriggerType(triggerType)

	if err := unmarshalJSONB(triggerConfig, &workflow.TriggerConfig); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func scanWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(value)
}

func unmarshalJSONB(data []byte, target *map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}
