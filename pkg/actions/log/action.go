// Package log provides an action that emits a structured log line.
package log

import (
	"context"
	"log/slog"

	"github.com/Acurioustractor/actflow/pkg/models"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Execute(_ context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_kind", "log", "execution_id", executionCtx.ExecutionID)

	switch a.Level {
	case "debug":
		logger.Debug(a.Message)
	case "warn", "warning":
		logger.Warn(a.Message)
	case "error":
		logger.Error(a.Message)
	default:
		logger.Info(a.Message)
	}

	return map[string]any{
		"message": a.Message,
		"level":   a.Level,
	}, nil
}
