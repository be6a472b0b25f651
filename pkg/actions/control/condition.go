package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

// ConditionAction evaluates a list of conditions (AND semantics) against the
// execution context and runs the then or else branch as a nested sequence.
type ConditionAction struct {
	conditions  []models.Condition
	thenActions []subAction
	elseActions []subAction
	registry    *registry.Registry
}

func NewConditionAction(reg *registry.Registry, config map[string]any) (*ConditionAction, error) {
	conditions, err := parseConditions(config["conditions"])
	if err != nil {
		return nil, err
	}

	thenActions, err := parseActionList(config["then_actions"])
	if err != nil {
		return nil, fmt.Errorf("then_actions: %w", err)
	}

	elseActions, err := parseActionList(config["else_actions"])
	if err != nil {
		return nil, fmt.Errorf("else_actions: %w", err)
	}

	return &ConditionAction{
		conditions:  conditions,
		thenActions: thenActions,
		elseActions: elseActions,
		registry:    reg,
	}, nil
}

func parseConditions(raw any) ([]models.Condition, error) {
	if raw == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}

	var conditions []models.Condition
	if err := json.Unmarshal(encoded, &conditions); err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}

	return conditions, nil
}

func (a *ConditionAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_kind", "control.condition")

	conditionMet := true

	for i := range a.conditions {
		met, err := a.conditions[i].Evaluate(executionCtx.Data)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}

		if !met {
			conditionMet = false

			break
		}
	}

	branch := a.thenActions
	if !conditionMet {
		branch = a.elseActions
	}

	logger.Debug("Evaluated conditions", "condition_met", conditionMet, "branch_actions", len(branch))

	results, err := runSequence(ctx, a.registry, branch, executionCtx, logger)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"condition_met": conditionMet,
		"results":       results,
	}, nil
}
