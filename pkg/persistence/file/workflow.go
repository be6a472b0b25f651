package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

// workflowSchema guards hand-edited definition files before they reach the
// engine.
const workflowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "trigger_type"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 3},
    "description": {"type": "string"},
    "trigger_type": {"enum": ["event", "schedule", "webhook", "manual"]},
    "trigger_config": {"type": "object"},
    "is_active": {"type": "boolean"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "step_number", "action_kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "step_number": {"type": "integer", "minimum": 1},
          "name": {"type": "string"},
          "action_kind": {"type": "string", "minLength": 1},
          "action_config": {"type": "object"},
          "condition": {"type": "object"},
          "retry": {
            "type": "object",
            "properties": {
              "max_retries": {"type": "integer", "minimum": 0},
              "base_delay_seconds": {"type": "number", "minimum": 0},
              "backoff_multiplier": {"type": "number", "minimum": 0}
            }
          },
          "timeout_seconds": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var workflowSchemaLoader = gojsonschema.NewStringLoader(workflowSchema)

type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) workflowsDir() string {
	return filepath.Join(r.root, "workflows")
}

func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(r.workflowsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := r.WorkflowByID(ctx, file[:len(file)-len(".json")])
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	path := filepath.Join(r.workflowsDir(), id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	if err := validateWorkflowDocument(data); err != nil {
		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) ActiveWorkflowsByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	all, err := r.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.IsActive && workflow.TriggerType == triggerType {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (r *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if err := workflow.Validate(); err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflow, err)
	}

	path := filepath.Join(r.workflowsDir(), workflow.ID+".json")

	if err := writeJSON(path, workflow); err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func validateWorkflowDocument(data []byte) error {
	result, err := gojsonschema.Validate(workflowSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflow, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %v", persistence.ErrInvalidWorkflow, messages)
	}

	return nil
}
