package models

import (
	"fmt"
	"math"
	"time"
)

// RetryPolicy controls retry behavior for a single step. A step is attempted
// up to MaxRetries+1 times; between attempts the engine waits
// BaseDelaySeconds * BackoffMultiplier^retryIndex.
type RetryPolicy struct {
	MaxRetries        int     `json:"max_retries"        validate:"gte=0"`
	BaseDelaySeconds  float64 `json:"base_delay_seconds" validate:"gte=0"`
	BackoffMultiplier float64 `json:"backoff_multiplier" validate:"gte=0"`
}

// Delay returns the backoff delay before retry retryIndex (zero-based), so
// for base 1s and multiplier 2 the sequence is 1s, 2s, 4s, ...
func (p RetryPolicy) Delay(retryIndex int) time.Duration {
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	seconds := p.BaseDelaySeconds * math.Pow(multiplier, float64(retryIndex))

	return time.Duration(seconds * float64(time.Second))
}

// WorkflowStep is one ordered unit of work within a workflow, bound to a
// registered action kind. StepNumber values are unique per workflow and
// define a strict linear execution order.
type WorkflowStep struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	StepNumber     int            `json:"step_number" validate:"gte=1"`
	Name           string         `json:"name,omitempty"`
	ActionKind     string         `json:"action_kind" validate:"required"`
	ActionConfig   map[string]any `json:"action_config,omitempty"`
	Condition      *Condition     `json:"condition,omitempty"`
	Retry          RetryPolicy    `json:"retry"`
	TimeoutSeconds int            `json:"timeout_seconds" validate:"gte=0"`
}

// Validate checks struct constraints on the step.
func (s *WorkflowStep) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid step %s: %w", s.ID, err)
	}

	if s.Condition != nil {
		if err := s.Condition.Validate(); err != nil {
			return fmt.Errorf("invalid step %s: %w", s.ID, err)
		}
	}

	return nil
}

// Timeout returns the per-attempt timeout, or zero when unbounded.
func (s *WorkflowStep) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
