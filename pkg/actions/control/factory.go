package control

import (
	"github.com/Acurioustractor/actflow/pkg/protocol"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

type ConditionFactory struct {
	registry *registry.Registry
}

func NewConditionFactory(reg *registry.Registry) *ConditionFactory {
	return &ConditionFactory{registry: reg}
}

func (*ConditionFactory) ID() string {
	return "control.condition"
}

func (f *ConditionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewConditionAction(f.registry, config)
}

type LoopFactory struct {
	registry *registry.Registry
}

func NewLoopFactory(reg *registry.Registry) *LoopFactory {
	return &LoopFactory{registry: reg}
}

func (*LoopFactory) ID() string {
	return "control.loop"
}

func (f *LoopFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewLoopAction(f.registry, config)
}

type WaitFactory struct{}

func NewWaitFactory() *WaitFactory {
	return &WaitFactory{}
}

func (*WaitFactory) ID() string {
	return "control.wait"
}

func (*WaitFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewWaitAction(config)
}

// RegisterAll registers the built-in control actions on reg. The condition
// and loop factories keep a reference back to the registry so nested
// sequences resolve through the same action set.
func RegisterAll(reg *registry.Registry) {
	reg.RegisterAction(NewConditionFactory(reg))
	reg.RegisterAction(NewLoopFactory(reg))
	reg.RegisterAction(NewWaitFactory())
}
