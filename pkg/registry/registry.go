// Package registry maps action kinds to their factories.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Acurioustractor/actflow/pkg/protocol"
)

// ErrUnknownAction indicates a step references an unregistered action kind.
// This is a configuration defect, not a transient fault; the engine fails
// the step immediately without retries.
var ErrUnknownAction = errors.New("action kind not registered")

// Registry is safe for concurrent use from many executions simultaneously.
type Registry struct {
	logger *slog.Logger

	mu              sync.RWMutex
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

// RegisterAction adds a factory, replacing any previous registration for the
// same kind.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[factory.ID()] = factory
	r.logger.Debug("Registered action", "kind", factory.ID())
}

// CreateAction resolves kind and builds an action from the given
// configuration.
func (r *Registry) CreateAction(kind string, config map[string]any) (protocol.Action, error) {
	r.mu.RLock()
	factory, ok := r.actionFactories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}

	return factory.Create(config)
}

// ActionKinds returns the registered kinds in sorted order.
func (r *Registry) ActionKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.actionFactories))
	for kind := range r.actionFactories {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}
