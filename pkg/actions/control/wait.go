package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Acurioustractor/actflow/pkg/models"
)

// WaitAction suspends its own execution's progress for a configured
// duration. The wait is cancellable: cancelling the owning execution
// interrupts it through the context.
type WaitAction struct {
	Duration time.Duration
}

func NewWaitAction(config map[string]any) (*WaitAction, error) {
	seconds, ok := toFloat(config["duration_seconds"])
	if !ok || seconds < 0 {
		return nil, fmt.Errorf("control.wait requires a non-negative duration_seconds")
	}

	return &WaitAction{Duration: time.Duration(seconds * float64(time.Second))}, nil
}

func (a *WaitAction) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.Debug("Waiting", "action_kind", "control.wait", "duration", a.Duration)

	timer := time.NewTimer(a.Duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]any{
		"waited_seconds": a.Duration.Seconds(),
	}, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
