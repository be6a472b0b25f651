// Package dispatcher routes trigger firings to workflow executions. It
// matches event, schedule, webhook and manual triggers against active
// workflow definitions and starts one execution per match.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/Acurioustractor/actflow/pkg/eventbus"
	"github.com/Acurioustractor/actflow/pkg/events"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence"
)

// Executor starts workflow executions. Satisfied by the engine.
type Executor interface {
	Execute(ctx context.Context, workflowID string, triggerPayload map[string]any) (*models.WorkflowExecution, error)
}

// Dispatcher matches trigger firings to workflows. Each match runs in its own
// goroutine so one workflow's failure never affects the others.
type Dispatcher struct {
	logger    *slog.Logger
	workflows persistence.WorkflowRepository
	executor  Executor
	eventBus  eventbus.EventBus

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID // workflow ID -> schedule entry

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher. The event bus may be nil for deployments
// without event triggers (webhook, schedule and manual still work).
func NewDispatcher(
	logger *slog.Logger,
	workflows persistence.WorkflowRepository,
	executor Executor,
	eventBus eventbus.EventBus,
) *Dispatcher {
	return &Dispatcher{
		logger:    logger.With("module", "dispatcher"),
		workflows: workflows,
		executor:  executor,
		eventBus:  eventBus,
		cron:      cron.New(),
		entries:   make(map[string]cron.EntryID),
	}
}

// Start subscribes to inbound trigger events and registers schedules for
// every active schedule-triggered workflow, then starts the cron runner.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.eventBus != nil {
		d.eventBus.Handle(events.TriggerReceivedEvent, func(ctx context.Context, event any) error {
			received, ok := event.(*events.TriggerReceived)
			if !ok {
				return fmt.Errorf("unexpected event payload %T", event)
			}

			_, err := d.DispatchEvent(ctx, received.EventType, received.EventData)

			return err
		})

		if err := d.eventBus.Subscribe(ctx); err != nil {
			return fmt.Errorf("failed to subscribe to trigger events: %w", err)
		}
	}

	if err := d.RefreshSchedules(ctx); err != nil {
		return err
	}

	d.cron.Start()
	d.logger.Info("Dispatcher started", "schedules", len(d.entries))

	return nil
}

// Stop halts the cron runner and waits for in-flight dispatches to hand off.
// Running executions are not interrupted.
func (d *Dispatcher) Stop(_ context.Context) {
	stopCtx := d.cron.Stop()
	<-stopCtx.Done()
	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}

// DispatchEvent routes an application event to every active event-triggered
// workflow whose configured event_type matches. Returns the match count.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, eventData map[string]any) (int, error) {
	matched, err := d.matchWorkflows(ctx, models.TriggerTypeEvent, "event_type", eventType)
	if err != nil {
		return 0, err
	}

	payload := map[string]any{
		"type":       "event",
		"event_type": eventType,
		"event_data": eventData,
	}

	for _, workflow := range matched {
		d.dispatch(workflow, payload)
	}

	return len(matched), nil
}

// DispatchWebhook routes an inbound webhook call to every active
// webhook-triggered workflow whose configured webhook_id matches. Returns the
// match count; zero matches is not an error.
func (d *Dispatcher) DispatchWebhook(ctx context.Context, webhookID string, body map[string]any) (int, error) {
	matched, err := d.matchWorkflows(ctx, models.TriggerTypeWebhook, "webhook_id", webhookID)
	if err != nil {
		return 0, err
	}

	payload := map[string]any{
		"type":         "webhook",
		"webhook_id":   webhookID,
		"webhook_data": body,
	}

	for _, workflow := range matched {
		d.dispatch(workflow, payload)
	}

	return len(matched), nil
}

// DispatchManual starts one execution of the given workflow synchronously.
func (d *Dispatcher) DispatchManual(ctx context.Context, workflowID string, data map[string]any) (*models.WorkflowExecution, error) {
	payload := map[string]any{
		"type":        "manual",
		"manual_data": data,
	}

	return d.executor.Execute(ctx, workflowID, payload)
}

func (d *Dispatcher) matchWorkflows(ctx context.Context, triggerType models.TriggerType, key, value string) ([]*models.Workflow, error) {
	candidates, err := d.workflows.ActiveWorkflowsByTriggerType(ctx, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s workflows: %w", triggerType, err)
	}

	matched := make([]*models.Workflow, 0, len(candidates))

	for _, workflow := range candidates {
		if workflow.TriggerConfigString(key) == value {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// dispatch starts one execution in its own goroutine. The execution runs on a
// background context: trigger delivery finishing must not cancel it.
func (d *Dispatcher) dispatch(workflow *models.Workflow, payload map[string]any) {
	logger := d.logger.With("workflow_id", workflow.ID)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Dispatch panicked", "panic", r)
			}
		}()

		execution, err := d.executor.Execute(context.Background(), workflow.ID, payload)
		if err != nil {
			logger.Error("Dispatch failed", "error", err)

			return
		}

		logger.Info("Dispatched execution", "execution_id", execution.ID, "status", execution.Status)
	}()
}
