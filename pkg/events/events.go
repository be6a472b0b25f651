// Package events defines the event types published on the bus: inbound
// trigger firings consumed by the dispatcher and execution lifecycle
// notifications emitted by the engine.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Acurioustractor/actflow/pkg/models"
)

type EventType string

// Topic carries every actflow event.
const Topic = "actflow.events"

const EventTypeMetadataKey = "event_type"

const (
	// TriggerReceivedEvent is an inbound event-trigger firing, published by
	// ingress adapters and consumed by the dispatcher.
	TriggerReceivedEvent EventType = "trigger.received"

	// Execution lifecycle events emitted by the engine.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	StepFinishedEvent       EventType = "step.finished"
	StepFailedEvent         EventType = "step.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// TriggerReceived carries an application event into the dispatcher.
type TriggerReceived struct {
	BaseEvent

	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data,omitempty"`
}

func (t TriggerReceived) GetType() EventType {
	return TriggerReceivedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	TriggerType string         `json:"trigger_type"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	DurationMs    int64  `json:"duration_ms"`
	StepsExecuted int    `json:"steps_executed"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error"`
	FailedStep  int    `json:"failed_step"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type StepFinished struct {
	BaseEvent

	ExecutionID string            `json:"execution_id"`
	StepID      string            `json:"step_id"`
	StepNumber  int               `json:"step_number"`
	Status      models.StepStatus `json:"status"`
	RetryCount  int               `json:"retry_count"`
}

func (e StepFinished) GetType() EventType {
	return StepFinishedEvent
}

type StepFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	StepID      string `json:"step_id"`
	StepNumber  int    `json:"step_number"`
	RetryCount  int    `json:"retry_count"`
	Error       string `json:"error"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}
