// Package protocol defines the contracts between the engine, the action
// registry and trigger sources.
package protocol

import (
	"context"
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/models"
)

// Action is one pluggable unit of external-facing work. Implementations may
// block on network I/O and must honor context cancellation; the engine
// abandons attempts whose context expires, so actions should not hold
// exclusive resources across that boundary.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory resolves a configuration map into an executable Action. The
// configuration handed to Create is already interpolated against the
// execution context.
type ActionFactory interface {
	ID() string
	Create(config map[string]any) (Action, error)
}
