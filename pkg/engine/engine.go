// Package engine runs workflow executions: it walks the ordered steps of a
// workflow, applies conditions, retries and timeouts, and records every
// execution and step-execution transition in persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Acurioustractor/actflow/pkg/eventbus"
	"github.com/Acurioustractor/actflow/pkg/events"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/otelhelper"
	"github.com/Acurioustractor/actflow/pkg/persistence"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

var (
	// ErrWorkflowNotActive indicates a trigger matched an inactive workflow.
	// No execution record is created in that case.
	ErrWorkflowNotActive = errors.New("workflow is not active")

	// ErrExecutionNotCancellable indicates a cancel request arrived after the
	// execution already reached a terminal status.
	ErrExecutionNotCancellable = errors.New("execution is not cancellable")
)

// Engine executes workflows. It is safe for concurrent use; each call to
// Execute owns its execution exclusively.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer

	// cancellations maps execution ID to the CancelFunc of its run, for the
	// lifetime of the run only.
	cancellations sync.Map
}

// NewEngine builds an engine. The event bus may be nil, in which case
// lifecycle events are not published. The tracer may be nil.
func NewEngine(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		logger:      logger.With("module", "engine"),
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		tracer:      tracer,
	}
}

// Execute runs one execution of the given workflow, synchronously. It returns
// the finished execution record; step failures are reported through the
// record's status, not through the error return. The error return is reserved
// for the workflow being unknown or inactive and for persistence faults.
func (e *Engine) Execute(ctx context.Context, workflowID string, triggerPayload map[string]any) (*models.WorkflowExecution, error) {
	workflow, err := e.persistence.WorkflowRepository().WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotActive, workflowID)
	}

	execution := models.NewWorkflowExecution(workflow.ID, triggerPayload)

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
	)

	executions := e.persistence.ExecutionRepository()
	if err := executions.CreateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.cancellations.Store(execution.ID, cancel)
	defer e.cancellations.Delete(execution.ID)

	if err := e.transition(ctx, execution, models.ExecutionRunning); err != nil {
		return nil, err
	}

	logger.Info("Execution started", "trigger_type", workflow.TriggerType)
	e.publish(ctx, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: execution.ID,
		TriggerType: string(workflow.TriggerType),
		Payload:     triggerPayload,
	})

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		Data: map[string]any{
			"trigger": triggerPayload,
		},
	}

	stepsExecuted := 0

	for _, step := range workflow.OrderedSteps() {
		stepExecution := e.runStep(runCtx, step, executionCtx, logger)

		if err := executions.CreateStepExecution(ctx, stepExecution); err != nil {
			return nil, fmt.Errorf("failed to record step execution: %w", err)
		}

		switch stepExecution.Status {
		case models.StepCompleted:
			stepsExecuted++
			executionCtx = executionCtx.WithData(map[string]any{
				fmt.Sprintf("step_%d", step.StepNumber): stepExecution.OutputData,
			})

			e.publish(ctx, events.StepFinished{
				BaseEvent:   events.NewBaseEvent(events.StepFinishedEvent, workflow.ID),
				ExecutionID: execution.ID,
				StepID:      step.ID,
				StepNumber:  step.StepNumber,
				Status:      stepExecution.Status,
				RetryCount:  stepExecution.RetryCount,
			})

		case models.StepSkipped:
			logger.Info("Step skipped", "step_id", step.ID, "step_number", step.StepNumber)
			e.publish(ctx, events.StepFinished{
				BaseEvent:   events.NewBaseEvent(events.StepFinishedEvent, workflow.ID),
				ExecutionID: execution.ID,
				StepID:      step.ID,
				StepNumber:  step.StepNumber,
				Status:      stepExecution.Status,
			})

		case models.StepFailed:
			if runCtx.Err() != nil {
				return e.finishCancelled(ctx, execution, logger)
			}

			logger.Error("Step failed, aborting execution",
				"step_id", step.ID,
				"step_number", step.StepNumber,
				"retry_count", stepExecution.RetryCount,
				"error", stepExecution.ErrorMessage)

			e.publish(ctx, events.StepFailed{
				BaseEvent:   events.NewBaseEvent(events.StepFailedEvent, workflow.ID),
				ExecutionID: execution.ID,
				StepID:      step.ID,
				StepNumber:  step.StepNumber,
				RetryCount:  stepExecution.RetryCount,
				Error:       stepExecution.ErrorMessage,
			})

			execution.ErrorMessage = fmt.Sprintf("step %d failed: %s", step.StepNumber, stepExecution.ErrorMessage)
			if err := e.transition(ctx, execution, models.ExecutionFailed); err != nil {
				return nil, err
			}

			failedStepErr := errors.New(execution.ErrorMessage)
			otelhelper.SetError(span, failedStepErr,
				attribute.String(otelhelper.StepIDKey, step.ID),
				attribute.Int(otelhelper.StepNumberKey, step.StepNumber),
			)

			e.publish(ctx, events.ExecutionFailed{
				BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, workflow.ID),
				ExecutionID: execution.ID,
				DurationMs:  time.Since(execution.StartedAt).Milliseconds(),
				Error:       execution.ErrorMessage,
				FailedStep:  step.StepNumber,
			})

			return execution, nil
		}

		if runCtx.Err() != nil {
			return e.finishCancelled(ctx, execution, logger)
		}
	}

	if err := e.transition(ctx, execution, models.ExecutionCompleted); err != nil {
		return nil, err
	}

	logger.Info("Execution completed", "steps_executed", stepsExecuted)
	e.publish(ctx, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, workflow.ID),
		ExecutionID:   execution.ID,
		DurationMs:    time.Since(execution.StartedAt).Milliseconds(),
		StepsExecuted: stepsExecuted,
	})

	return execution, nil
}

// Cancel requests cancellation of a pending or running execution. When the
// execution runs inside this process its run loop observes the cancellation
// and finishes the record; otherwise the record is transitioned directly.
func (e *Engine) Cancel(ctx context.Context, executionID string) error {
	execution, err := e.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrExecutionNotCancellable, executionID, execution.Status)
	}

	if cancel, ok := e.cancellations.Load(executionID); ok {
		e.logger.Info("Cancelling running execution", "execution_id", executionID)
		cancel.(context.CancelFunc)()

		return nil
	}

	// Not running in this process. Finish the record here.
	if err := e.transition(ctx, execution, models.ExecutionCancelled); err != nil {
		return err
	}

	e.publish(ctx, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		DurationMs:  time.Since(execution.StartedAt).Milliseconds(),
	})

	return nil
}

func (e *Engine) finishCancelled(ctx context.Context, execution *models.WorkflowExecution, logger *slog.Logger) (*models.WorkflowExecution, error) {
	if err := e.transition(ctx, execution, models.ExecutionCancelled); err != nil {
		return nil, err
	}

	logger.Info("Execution cancelled")
	e.publish(ctx, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		DurationMs:  time.Since(execution.StartedAt).Milliseconds(),
	})

	return execution, nil
}

func (e *Engine) transition(ctx context.Context, execution *models.WorkflowExecution, next models.ExecutionStatus) error {
	if err := execution.Transition(next); err != nil {
		return err
	}

	if err := e.persistence.ExecutionRepository().UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	return nil
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
