// Package control provides the built-in control-flow actions. They live in
// the registry rather than the engine so the engine stays action-agnostic.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/interpolate"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

// subAction is one entry of a nested action sequence
// ({kind, config} as configured under then_actions / else_actions /
// loop_actions).
type subAction struct {
	Kind   string
	Config map[string]any
}

func parseActionList(raw any) ([]subAction, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("action list must be an array, got %T", raw)
	}

	actions := make([]subAction, 0, len(items))

	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action list entry %d must be an object, got %T", i, item)
		}

		kind, _ := entry["kind"].(string)
		if kind == "" {
			return nil, fmt.Errorf("action list entry %d is missing a kind", i)
		}

		config, _ := entry["config"].(map[string]any)

		actions = append(actions, subAction{Kind: kind, Config: config})
	}

	return actions, nil
}

// runSequence executes a nested action list in order against the current
// context. Configurations are re-interpolated here because nested templates
// (loop scope in particular) only resolve once the scoped context exists.
// The first failure aborts the sequence.
func runSequence(
	ctx context.Context,
	reg *registry.Registry,
	actions []subAction,
	executionCtx models.ExecutionContext,
	logger *slog.Logger,
) ([]map[string]any, error) {
	results := make([]map[string]any, 0, len(actions))

	for i, sub := range actions {
		config := interpolate.ResolveConfig(sub.Config, executionCtx.Data)

		action, err := reg.CreateAction(sub.Kind, config)
		if err != nil {
			return results, fmt.Errorf("nested action %d (%s): %w", i, sub.Kind, err)
		}

		output, err := action.Execute(ctx, executionCtx, logger)
		if err != nil {
			return results, fmt.Errorf("nested action %d (%s): %w", i, sub.Kind, err)
		}

		results = append(results, output)
	}

	return results, nil
}
