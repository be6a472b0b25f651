package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/Acurioustractor/actflow/pkg/cmd"
	"github.com/Acurioustractor/actflow/pkg/dispatcher"
	"github.com/Acurioustractor/actflow/pkg/engine"
	"github.com/Acurioustractor/actflow/pkg/events"
	"github.com/Acurioustractor/actflow/pkg/log"
	"github.com/Acurioustractor/actflow/pkg/otelhelper"
	"github.com/Acurioustractor/actflow/pkg/triggers/queue"
	"github.com/Acurioustractor/actflow/pkg/web"
)

const defaultPort = 9090

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the engine, dispatcher and API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list to consume trigger events from (disabled when empty)",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "queue-addr",
				Usage:   "Redis address for the queue trigger",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("QUEUE_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing (OTLP over HTTP)",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("actflow")

	logger.InfoContext(ctx, "Initializing actflow")

	persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persist.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var tracer trace.Tracer
	if command.Bool("tracing") {
		tracer, err = otelhelper.NewTracer(ctx, "actflow")
		if err != nil {
			return err
		}
	}

	registry := cmd.NewRegistry(logger)
	eng := engine.NewEngine(logger, persist, registry, eventBus, tracer)
	disp := dispatcher.NewDispatcher(logger, persist.WorkflowRepository(), eng, eventBus)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := disp.Start(runCtx); err != nil {
		return err
	}
	defer disp.Stop(ctx)

	if queueName := command.String("queue-name"); queueName != "" {
		queueTrigger, err := queue.NewTrigger(map[string]any{
			"queue": queueName,
			"addr":  command.String("queue-addr"),
		}, logger)
		if err != nil {
			return err
		}

		callback := func(ctx context.Context, data map[string]any) error {
			eventType, _ := data["event_type"].(string)

			return eventBus.Publish(ctx, events.TriggerReceived{
				BaseEvent: events.NewBaseEvent(events.TriggerReceivedEvent, ""),
				EventType: eventType,
				EventData: data,
			})
		}

		if err := queueTrigger.Start(runCtx, callback); err != nil {
			return err
		}

		defer func() {
			if err := queueTrigger.Stop(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to stop queue trigger", "error", err)
			}
		}()
	}

	handlers := web.NewAPIHandlers(logger, persist, disp, eng)
	app := web.NewApp(handlers)

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

		sig := <-signals
		logger.Info("Received signal, shutting down", "signal", sig)

		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down API server", "error", err)
		}

		cancel()
	}()

	logger.Info("Starting API server", "port", command.Int("port"))

	return app.Listen(":" + strconv.Itoa(command.Int("port")))
}
