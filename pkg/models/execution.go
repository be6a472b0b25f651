package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal executions are
// immutable.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// CanTransitionTo enforces the execution state machine:
// pending -> running -> (completed | failed), with cancelled reachable from
// pending or running only.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionPending:
		return next == ExecutionRunning || next == ExecutionCancelled
	case ExecutionRunning:
		return next == ExecutionCompleted || next == ExecutionFailed || next == ExecutionCancelled
	default:
		return false
	}
}

// WorkflowExecution is one run of a workflow, created per trigger firing and
// owned exclusively by the engine.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	Status         ExecutionStatus `json:"status"`
	TriggerPayload map[string]any  `json:"trigger_payload,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// NewWorkflowExecution creates a pending execution for the given workflow.
func NewWorkflowExecution(workflowID string, triggerPayload map[string]any) *WorkflowExecution {
	return &WorkflowExecution{
		ID:             "exec-" + uuid.New().String(),
		WorkflowID:     workflowID,
		Status:         ExecutionPending,
		TriggerPayload: triggerPayload,
		StartedAt:      time.Now().UTC(),
	}
}

// Transition moves the execution to the next status, rejecting transitions
// out of terminal states.
func (e *WorkflowExecution) Transition(next ExecutionStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid execution transition %s -> %s", e.Status, next)
	}

	e.Status = next

	if next.Terminal() {
		now := time.Now().UTC()
		e.CompletedAt = &now
	}

	return nil
}

// StepStatus is the lifecycle state of one step within one execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Terminal reports whether the step status is final. Skipped is terminal and
// reached only when a step condition evaluates false.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepFailed || s == StepSkipped
}

// StepExecution records one attempt-sequence of one step within one
// execution. RetryCount is the number of retries performed, not attempts:
// a step that succeeds first try has RetryCount 0.
type StepExecution struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	StepID       string         `json:"step_id"`
	StepNumber   int            `json:"step_number"`
	Status       StepStatus     `json:"status"`
	InputContext map[string]any `json:"input_context,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewStepExecution creates a step execution in the given initial status.
func NewStepExecution(executionID string, step WorkflowStep, status StepStatus) *StepExecution {
	return &StepExecution{
		ID:          "sexec-" + uuid.New().String(),
		ExecutionID: executionID,
		StepID:      step.ID,
		StepNumber:  step.StepNumber,
		Status:      status,
		StartedAt:   time.Now().UTC(),
	}
}

// Finish marks the step execution terminal.
func (se *StepExecution) Finish(status StepStatus) {
	se.Status = status
	now := time.Now().UTC()
	se.CompletedAt = &now
}
