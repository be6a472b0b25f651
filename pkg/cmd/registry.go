// Package cmd provides common initialization for the command-line entry
// points: registry, persistence and event bus construction from
// configuration.
package cmd

import (
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/actions/control"
	"github.com/Acurioustractor/actflow/pkg/actions/httprequest"
	logaction "github.com/Acurioustractor/actflow/pkg/actions/log"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

// NewRegistry builds the action registry with all built-in actions
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
	control.RegisterAll(reg)

	return reg
}
