package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/Acurioustractor/actflow/pkg/cmd"
	"github.com/Acurioustractor/actflow/pkg/log"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored workflow definitions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: validateAction,
	}
}

func validateAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("validate")

	persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persist.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	registry := cmd.NewRegistry(logger)
	registered := make(map[string]bool)

	for _, kind := range registry.ActionKinds() {
		registered[kind] = true
	}

	workflows, err := persist.WorkflowRepository().Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch workflows: %w", err)
	}

	logger.InfoContext(ctx, "Validating workflows", "count", len(workflows))

	invalid := 0

	for _, workflow := range workflows {
		if err := workflow.Validate(); err != nil {
			logger.ErrorContext(ctx, "Invalid workflow", "workflow_id", workflow.ID, "error", err)

			invalid++

			continue
		}

		for _, step := range workflow.Steps {
			if !registered[step.ActionKind] {
				logger.ErrorContext(ctx, "Step references unknown action kind",
					"workflow_id", workflow.ID, "step_id", step.ID, "action_kind", step.ActionKind)

				invalid++
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("validation failed for %d workflow(s)", invalid)
	}

	logger.InfoContext(ctx, "All workflows valid")

	return nil
}
