// Package models defines the core domain models for workflow automation.
package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// TriggerType identifies the mechanism that initiates workflow executions.
type TriggerType string

const (
	TriggerTypeEvent    TriggerType = "event"    // Internal event bus messages
	TriggerTypeSchedule TriggerType = "schedule" // Cron-style schedules
	TriggerTypeWebhook  TriggerType = "webhook"  // Inbound HTTP calls
	TriggerTypeManual   TriggerType = "manual"   // Operator-initiated
)

// Workflow is a named automation definition composed of ordered steps.
// Workflows are read-only to the engine; operators soft-disable them via
// IsActive rather than deleting while executions still reference them.
type Workflow struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description,omitempty"`
	TriggerType   TriggerType    `json:"trigger_type"   validate:"required,oneof=event schedule webhook manual"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	IsActive      bool           `json:"is_active"`
	Steps         []WorkflowStep `json:"steps"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

var validate = validator.New()

// Validate checks struct constraints and the per-workflow step number
// uniqueness invariant.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid workflow %s: %w", w.ID, err)
	}

	seen := make(map[int]string, len(w.Steps))

	for _, step := range w.Steps {
		if err := step.Validate(); err != nil {
			return err
		}

		if other, dup := seen[step.StepNumber]; dup {
			return fmt.Errorf("workflow %s: steps %s and %s share step number %d",
				w.ID, other, step.ID, step.StepNumber)
		}

		seen[step.StepNumber] = step.ID
	}

	return nil
}

// OrderedSteps returns the steps sorted by ascending step number. The slice
// is a copy; the workflow itself is never mutated by the engine.
func (w *Workflow) OrderedSteps() []WorkflowStep {
	steps := make([]WorkflowStep, len(w.Steps))
	copy(steps, w.Steps)

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})

	return steps
}

// TriggerConfigString reads a string value from the trigger configuration.
func (w *Workflow) TriggerConfigString(key string) string {
	if w.TriggerConfig == nil {
		return ""
	}

	value, _ := w.TriggerConfig[key].(string)

	return value
}
