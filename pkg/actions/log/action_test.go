package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Acurioustractor/actflow/pkg/models"
)

func TestNewAction_Defaults(t *testing.T) {
	t.Parallel()

	action := NewAction(map[string]any{"message": "hello"})
	assert.Equal(t, "hello", action.Message)
	assert.Equal(t, "info", action.Level)
}

func TestExecute_EmitsMessageAndOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))

	action := NewAction(map[string]any{"message": "order processed", "level": "warn"})

	output, err := action.Execute(context.Background(),
		models.ExecutionContext{ExecutionID: "exec-1"}, logger)
	require.NoError(t, err)

	assert.Equal(t, "order processed", output["message"])
	assert.Equal(t, "warn", output["level"])
	assert.Contains(t, buf.String(), "order processed")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "execution_id=exec-1")
}

func TestActionFactory(t *testing.T) {
	t.Parallel()

	factory := NewActionFactory()
	assert.Equal(t, "log", factory.ID())

	action, err := factory.Create(nil)
	require.NoError(t, err)
	assert.NotNil(t, action)
}
