package httprequest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Acurioustractor/actflow/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewAction_Defaults(t *testing.T) {
	t.Parallel()

	action, err := NewAction(map[string]any{"url": "https://api.example.com"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, action.Method)
	assert.Equal(t, defaultTimeout, action.Timeout)
}

func TestNewAction_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewAction(map[string]any{"method": "POST"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestNewAction_FullConfig(t *testing.T) {
	t.Parallel()

	action, err := NewAction(map[string]any{
		"url":             "https://api.example.com/orders",
		"method":          "post",
		"body":            `{"k":"v"}`,
		"headers":         map[string]any{"Authorization": "Bearer token", "ignored": 42},
		"timeout_seconds": float64(5),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, action.Method)
	assert.Equal(t, `{"k":"v"}`, action.Body)
	assert.Equal(t, map[string]string{"Authorization": "Bearer token"}, action.Headers)
	assert.Equal(t, 5*time.Second, action.Timeout)
}

func TestExecute_JSONResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"order_id":"ord-1"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "created"})
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":     server.URL,
		"method":  "POST",
		"body":    `{"order_id":"ord-1"}`,
		"headers": map[string]any{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, output["status_code"])

	body, ok := output["body"].(map[string]any)
	require.True(t, ok, "JSON responses decode into a map")
	assert.Equal(t, "created", body["status"])
}

func TestExecute_NonJSONBodyKeptAsString(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "plain text", output["body"])
}

func TestExecute_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExecute_ContextCancellation(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.Error(t, err)
}

func TestActionFactory(t *testing.T) {
	t.Parallel()

	factory := NewActionFactory()
	assert.Equal(t, "http_request", factory.ID())

	action, err := factory.Create(map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.NotNil(t, action)

	_, err = factory.Create(map[string]any{})
	require.Error(t, err)
}
