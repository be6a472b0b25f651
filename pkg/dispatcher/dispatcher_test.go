package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Acurioustractor/actflow/pkg/channels/gochannel"
	"github.com/Acurioustractor/actflow/pkg/eventbus"
	"github.com/Acurioustractor/actflow/pkg/events"
	"github.com/Acurioustractor/actflow/pkg/models"
	"github.com/Acurioustractor/actflow/pkg/persistence/file"
)

// recordingExecutor captures dispatched executions without running anything.
type recordingExecutor struct {
	mu       sync.Mutex
	calls    []executorCall
	err      error
	panicked bool
}

type executorCall struct {
	workflowID string
	payload    map[string]any
}

func (e *recordingExecutor) Execute(_ context.Context, workflowID string, payload map[string]any) (*models.WorkflowExecution, error) {
	e.mu.Lock()
	e.calls = append(e.calls, executorCall{workflowID: workflowID, payload: payload})
	e.mu.Unlock()

	if e.panicked {
		panic("executor blew up")
	}

	if e.err != nil {
		return nil, e.err
	}

	execution := models.NewWorkflowExecution(workflowID, payload)
	_ = execution.Transition(models.ExecutionRunning)
	_ = execution.Transition(models.ExecutionCompleted)

	return execution, nil
}

func (e *recordingExecutor) callsSnapshot() []executorCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]executorCall(nil), e.calls...)
}

func (e *recordingExecutor) waitForCalls(t *testing.T, want int) []executorCall {
	t.Helper()

	deadline := time.After(5 * time.Second)

	for {
		calls := e.callsSnapshot()
		if len(calls) >= want {
			return calls
		}

		select {
		case <-deadline:
			t.Fatalf("expected %d dispatches, got %d", want, len(calls))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDispatcher(t *testing.T, bus eventbus.EventBus, workflows ...*models.Workflow) (*Dispatcher, *recordingExecutor) {
	t.Helper()

	persist := file.NewPersistence(t.TempDir())
	for _, workflow := range workflows {
		require.NoError(t, persist.WorkflowRepository().SaveWorkflow(context.Background(), workflow))
	}

	executor := &recordingExecutor{}

	return NewDispatcher(testLogger(), persist.WorkflowRepository(), executor, bus), executor
}

func eventWorkflow(id, eventType string) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		Name:          "Event Workflow " + id,
		TriggerType:   models.TriggerTypeEvent,
		TriggerConfig: map[string]any{"event_type": eventType},
		IsActive:      true,
	}
}

func webhookWorkflow(id, webhookID string) *models.Workflow {
	return &models.Workflow{
		ID:            id,
		Name:          "Webhook Workflow " + id,
		TriggerType:   models.TriggerTypeWebhook,
		TriggerConfig: map[string]any{"webhook_id": webhookID},
		IsActive:      true,
	}
}

func TestDispatchEvent_MatchesByEventType(t *testing.T) {
	t.Parallel()

	inactive := eventWorkflow("wf-3", "order.created")
	inactive.IsActive = false

	dispatcher, executor := newTestDispatcher(t, nil,
		eventWorkflow("wf-1", "order.created"),
		eventWorkflow("wf-2", "user.signup"),
		inactive,
	)

	count, err := dispatcher.DispatchEvent(context.Background(), "order.created", map[string]any{"order_id": "ord-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	calls := executor.waitForCalls(t, 1)
	assert.Equal(t, "wf-1", calls[0].workflowID)
	assert.Equal(t, "event", calls[0].payload["type"])
	assert.Equal(t, "order.created", calls[0].payload["event_type"])

	eventData, ok := calls[0].payload["event_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ord-1", eventData["order_id"])
}

func TestDispatchEvent_NoMatches(t *testing.T) {
	t.Parallel()

	dispatcher, executor := newTestDispatcher(t, nil, eventWorkflow("wf-1", "order.created"))

	count, err := dispatcher.DispatchEvent(context.Background(), "unrelated.event", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, executor.callsSnapshot())
}

func TestDispatchWebhook_MatchesByWebhookID(t *testing.T) {
	t.Parallel()

	dispatcher, executor := newTestDispatcher(t, nil,
		webhookWorkflow("wf-1", "hook-a"),
		webhookWorkflow("wf-2", "hook-a"),
		webhookWorkflow("wf-3", "hook-b"),
	)

	count, err := dispatcher.DispatchWebhook(context.Background(), "hook-a", map[string]any{"key": "value"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	calls := executor.waitForCalls(t, 2)

	ids := map[string]bool{}
	for _, call := range calls {
		ids[call.workflowID] = true
		assert.Equal(t, "webhook", call.payload["type"])
		assert.Equal(t, "hook-a", call.payload["webhook_id"])
	}

	assert.True(t, ids["wf-1"])
	assert.True(t, ids["wf-2"])
}

func TestDispatchManual_Synchronous(t *testing.T) {
	t.Parallel()

	workflow := eventWorkflow("wf-1", "ignored")
	dispatcher, executor := newTestDispatcher(t, nil, workflow)

	execution, err := dispatcher.DispatchManual(context.Background(), "wf-1", map[string]any{"reason": "replay"})
	require.NoError(t, err)
	require.NotNil(t, execution)

	calls := executor.callsSnapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "manual", calls[0].payload["type"])

	manualData, ok := calls[0].payload["manual_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "replay", manualData["reason"])
}

func TestDispatch_FailureIsolation(t *testing.T) {
	t.Parallel()

	dispatcher, executor := newTestDispatcher(t, nil,
		webhookWorkflow("wf-1", "hook"),
		webhookWorkflow("wf-2", "hook"),
	)
	executor.err = errors.New("execution refused")

	count, err := dispatcher.DispatchWebhook(context.Background(), "hook", nil)
	require.NoError(t, err, "executor failures must not surface to the trigger source")
	assert.Equal(t, 2, count)

	executor.waitForCalls(t, 2)
}

func TestDispatch_PanicIsolation(t *testing.T) {
	t.Parallel()

	dispatcher, executor := newTestDispatcher(t, nil, webhookWorkflow("wf-1", "hook"))
	executor.panicked = true

	count, err := dispatcher.DispatchWebhook(context.Background(), "hook", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	executor.waitForCalls(t, 1)
	dispatcher.Stop(context.Background())
}

func TestStart_EventTriggerViaBus(t *testing.T) {
	t.Parallel()

	pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(testLogger()))
	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer bus.Close()

	dispatcher, executor := newTestDispatcher(t, bus, eventWorkflow("wf-1", "payment.settled"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, dispatcher.Start(ctx))
	defer dispatcher.Stop(context.Background())

	err := bus.Publish(ctx, events.TriggerReceived{
		BaseEvent: events.NewBaseEvent(events.TriggerReceivedEvent, ""),
		EventType: "payment.settled",
		EventData: map[string]any{"amount": 42},
	})
	require.NoError(t, err)

	calls := executor.waitForCalls(t, 1)
	assert.Equal(t, "wf-1", calls[0].workflowID)
	assert.Equal(t, "payment.settled", calls[0].payload["event_type"])
}

func TestRefreshSchedules_RegistersAndRemoves(t *testing.T) {
	t.Parallel()

	scheduled := &models.Workflow{
		ID:            "wf-sched",
		Name:          "Scheduled Workflow",
		TriggerType:   models.TriggerTypeSchedule,
		TriggerConfig: map[string]any{"cron": "*/5 * * * *"},
		IsActive:      true,
	}

	persist := file.NewPersistence(t.TempDir())
	require.NoError(t, persist.WorkflowRepository().SaveWorkflow(context.Background(), scheduled))

	executor := &recordingExecutor{}
	dispatcher := NewDispatcher(testLogger(), persist.WorkflowRepository(), executor, nil)

	require.NoError(t, dispatcher.RefreshSchedules(context.Background()))
	assert.Len(t, dispatcher.entries, 1)

	// Deactivate and reconcile.
	scheduled.IsActive = false
	require.NoError(t, persist.WorkflowRepository().SaveWorkflow(context.Background(), scheduled))

	require.NoError(t, dispatcher.RefreshSchedules(context.Background()))
	assert.Empty(t, dispatcher.entries)
}

func TestRefreshSchedules_MissingCronExpression(t *testing.T) {
	t.Parallel()

	scheduled := &models.Workflow{
		ID:          "wf-sched",
		Name:        "Scheduled Workflow",
		TriggerType: models.TriggerTypeSchedule,
		IsActive:    true,
	}

	persist := file.NewPersistence(t.TempDir())
	require.NoError(t, persist.WorkflowRepository().SaveWorkflow(context.Background(), scheduled))

	executor := &recordingExecutor{}
	dispatcher := NewDispatcher(testLogger(), persist.WorkflowRepository(), executor, nil)

	require.NoError(t, dispatcher.RefreshSchedules(context.Background()))
	assert.Empty(t, dispatcher.entries)
}
