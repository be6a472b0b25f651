package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/interpolate"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

// maxLoopIterations bounds runaway loops regardless of configuration.
const maxLoopIterations = 100

// LoopAction iterates a context array, running a nested action sequence once
// per item with a loop-scoped context extension {loop.index, loop.item,
// loop.total}. Iterations run sequentially; the loop fails closed on the
// first iteration whose action set fails.
type LoopAction struct {
	itemsField    string
	maxIterations int
	loopActions   []subAction
	registry      *registry.Registry
}

func NewLoopAction(reg *registry.Registry, config map[string]any) (*LoopAction, error) {
	itemsField, _ := config["items_field"].(string)
	if itemsField == "" {
		return nil, fmt.Errorf("control.loop requires items_field")
	}

	maxIterations := maxLoopIterations
	if configured, ok := toInt(config["max_iterations"]); ok && configured > 0 {
		maxIterations = min(configured, maxLoopIterations)
	}

	loopActions, err := parseActionList(config["loop_actions"])
	if err != nil {
		return nil, fmt.Errorf("loop_actions: %w", err)
	}

	return &LoopAction{
		itemsField:    itemsField,
		maxIterations: maxIterations,
		loopActions:   loopActions,
		registry:      reg,
	}, nil
}

func (a *LoopAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_kind", "control.loop", "items_field", a.itemsField)

	raw, ok := interpolate.Lookup(executionCtx.Data, a.itemsField)
	if !ok {
		return nil, fmt.Errorf("items field %q not present in context", a.itemsField)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("items field %q is %T, want array", a.itemsField, raw)
	}

	total := len(items)
	iterations := min(total, a.maxIterations)
	results := make([]any, 0, iterations)

	for index := 0; index < iterations; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scoped := executionCtx.WithData(map[string]any{
			"loop": map[string]any{
				"index": index,
				"item":  items[index],
				"total": total,
			},
		})

		iterationResults, err := runSequence(ctx, a.registry, a.loopActions, scoped, logger)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", index, err)
		}

		results = append(results, iterationResults)
	}

	logger.Debug("Loop completed", "iterations", iterations, "total_items", total)

	return map[string]any{
		"iterations": iterations,
		"total":      total,
		"results":    results,
	}, nil
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
