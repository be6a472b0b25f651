package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Acurioustractor/actflow/pkg/interpolate"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/otelhelper"
	"github.com/Acurioustractor/actflow/pkg/protocol"
	"github.com/Acurioustractor/actflow/pkg/registry"
)

// errAttemptTimeout marks an attempt that exceeded its per-attempt timeout.
// A timed-out attempt counts as a failed attempt toward the retry budget.
var errAttemptTimeout = errors.New("step attempt timed out")

// runStep executes one step to a terminal status. It never returns an error;
// the outcome is carried by the step execution record. A condition evaluating
// false yields skipped with zero retries. Failures are retried per the step's
// retry policy with exponential backoff, and cancellation interrupts both
// attempts and backoff waits.
func (e *Engine) runStep(ctx context.Context, step models.WorkflowStep, executionCtx models.ExecutionContext, logger *slog.Logger) *models.StepExecution {
	logger = logger.With("step_id", step.ID, "step_number", step.StepNumber, "action_kind", step.ActionKind)

	stepExecution := models.NewStepExecution(executionCtx.ExecutionID, step, models.StepRunning)
	stepExecution.InputContext = executionCtx.Data

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.Int(otelhelper.StepNumberKey, step.StepNumber),
		attribute.String(otelhelper.ActionKindKey, step.ActionKind),
	)
	defer span.End()

	if step.Condition != nil {
		met, err := step.Condition.Evaluate(executionCtx.Data)
		if err != nil {
			stepExecution.ErrorMessage = fmt.Sprintf("condition evaluation failed: %v", err)
			stepExecution.Finish(models.StepFailed)
			otelhelper.SetError(span, err)

			return stepExecution
		}

		if !met {
			stepExecution.Finish(models.StepSkipped)

			return stepExecution
		}
	}

	config := interpolate.ResolveConfig(step.ActionConfig, executionCtx.Data)

	action, err := e.registry.CreateAction(step.ActionKind, config)
	if err != nil {
		// Unknown kinds and malformed configs are definition defects, not
		// transient faults. No retries.
		stepExecution.ErrorMessage = err.Error()
		stepExecution.Finish(models.StepFailed)
		otelhelper.SetError(span, err)

		if errors.Is(err, registry.ErrUnknownAction) {
			logger.Error("Step references unknown action kind")
		}

		return stepExecution
	}

	var lastErr error

	for attempt := 0; attempt <= step.Retry.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			stepExecution.RetryCount = attempt
			stepExecution.ErrorMessage = "execution cancelled"
			stepExecution.Finish(models.StepFailed)

			return stepExecution
		}

		if attempt > 0 {
			logger.Info("Retrying step", "attempt", attempt+1, "max_attempts", step.Retry.MaxRetries+1)
		}

		output, err := e.runAttempt(ctx, action, step.Timeout(), executionCtx, logger)
		if err == nil {
			stepExecution.RetryCount = attempt
			stepExecution.OutputData = output
			stepExecution.Finish(models.StepCompleted)

			return stepExecution
		}

		lastErr = err
		logger.Warn("Step attempt failed", "attempt", attempt+1, "error", err)

		if attempt < step.Retry.MaxRetries {
			if !e.backoff(ctx, step.Retry.Delay(attempt)) {
				stepExecution.RetryCount = attempt + 1
				stepExecution.ErrorMessage = "execution cancelled"
				stepExecution.Finish(models.StepFailed)

				return stepExecution
			}
		}
	}

	stepExecution.RetryCount = step.Retry.MaxRetries
	stepExecution.ErrorMessage = lastErr.Error()
	stepExecution.Finish(models.StepFailed)
	otelhelper.SetError(span, lastErr)

	return stepExecution
}

// runAttempt runs the action once, bounded by the per-attempt timeout when
// one is configured. A timed-out attempt's goroutine is abandoned; the action
// receives the cancellation through its context.
func (e *Engine) runAttempt(ctx context.Context, action protocol.Action, timeout time.Duration, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	attemptCtx := ctx

	if timeout > 0 {
		var cancel context.CancelFunc

		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type attemptResult struct {
		output map[string]any
		err    error
	}

	resultCh := make(chan attemptResult, 1)

	go func() {
		output, err := action.Execute(attemptCtx, executionCtx, logger)
		resultCh <- attemptResult{output: output, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.output, result.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("%w after %s", errAttemptTimeout, timeout)
	}
}

// backoff waits for the given delay, returning false when the execution is
// cancelled while waiting.
func (e *Engine) backoff(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
