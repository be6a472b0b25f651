package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStatus_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    ExecutionStatus
		to      ExecutionStatus
		allowed bool
	}{
		{ExecutionPending, ExecutionRunning, true},
		{ExecutionPending, ExecutionCancelled, true},
		{ExecutionPending, ExecutionCompleted, false},
		{ExecutionPending, ExecutionFailed, false},
		{ExecutionRunning, ExecutionCompleted, true},
		{ExecutionRunning, ExecutionFailed, true},
		{ExecutionRunning, ExecutionCancelled, true},
		{ExecutionRunning, ExecutionPending, false},
		{ExecutionCompleted, ExecutionRunning, false},
		{ExecutionCompleted, ExecutionCancelled, false},
		{ExecutionFailed, ExecutionRunning, false},
		{ExecutionCancelled, ExecutionRunning, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestExecutionStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, ExecutionPending.Terminal())
	assert.False(t, ExecutionRunning.Terminal())
	assert.True(t, ExecutionCompleted.Terminal())
	assert.True(t, ExecutionFailed.Terminal())
	assert.True(t, ExecutionCancelled.Terminal())
}

func TestWorkflowExecution_Transition(t *testing.T) {
	t.Parallel()

	execution := NewWorkflowExecution("wf-1", map[string]any{"k": "v"})

	assert.Equal(t, ExecutionPending, execution.Status)
	assert.NotEmpty(t, execution.ID)
	assert.Nil(t, execution.CompletedAt)

	require.NoError(t, execution.Transition(ExecutionRunning))
	assert.Nil(t, execution.CompletedAt)

	require.NoError(t, execution.Transition(ExecutionCompleted))
	assert.NotNil(t, execution.CompletedAt)

	// Terminal executions are immutable.
	err := execution.Transition(ExecutionCancelled)
	require.Error(t, err)
	assert.Equal(t, ExecutionCompleted, execution.Status)
}

func TestStepStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StepPending.Terminal())
	assert.False(t, StepRunning.Terminal())
	assert.True(t, StepCompleted.Terminal())
	assert.True(t, StepFailed.Terminal())
	assert.True(t, StepSkipped.Terminal())
}

func TestStepExecution_Finish(t *testing.T) {
	t.Parallel()

	step := WorkflowStep{ID: "s1", StepNumber: 2}
	stepExecution := NewStepExecution("exec-1", step, StepRunning)

	assert.Equal(t, "exec-1", stepExecution.ExecutionID)
	assert.Equal(t, "s1", stepExecution.StepID)
	assert.Equal(t, 2, stepExecution.StepNumber)
	assert.Zero(t, stepExecution.RetryCount)
	assert.Nil(t, stepExecution.CompletedAt)

	stepExecution.Finish(StepCompleted)
	assert.Equal(t, StepCompleted, stepExecution.Status)
	assert.NotNil(t, stepExecution.CompletedAt)
}
