// Package queue provides a redis-backed queue consumer that feeds trigger
// events into the dispatcher. Each popped message becomes one
// trigger.received event.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Acurioustractor/actflow/pkg/protocol"
)

// Trigger consumes a redis list with BLPOP. Message bodies are JSON objects;
// non-JSON bodies are wrapped under a "message" key. The "event_type" field
// of the body selects which event-triggered workflows match.
type Trigger struct {
	Addr     string
	Password string
	DB       int
	Queue    string

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queueName, _ := config["queue"].(string)
	if queueName == "" {
		return nil, errors.New("queue trigger requires a queue name")
	}

	addr, _ := config["addr"].(string)
	if addr == "" {
		addr = "localhost:6379"
	}

	password, _ := config["password"].(string)

	db := 0
	if dbStr, _ := config["db"].(string); dbStr != "" {
		parsed, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid db value %q: %w", dbStr, err)
		}

		db = parsed
	}

	return &Trigger{
		Addr:     addr,
		Password: password,
		DB:       db,
		Queue:    queueName,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queueName,
		),
	}, nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	t.client = redis.NewClient(&redis.Options{
		Addr:     t.Addr,
		Password: t.Password,
		DB:       t.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to redis", "addr", t.Addr, "db", t.DB)

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := t.processMessage(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, 1*time.Second, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var triggerData map[string]any
	if err := json.Unmarshal([]byte(message), &triggerData); err != nil {
		triggerData = map[string]any{"message": message}
	}

	if triggerData["timestamp"] == nil {
		triggerData["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	go func() {
		if err := t.callback(ctx, triggerData); err != nil {
			t.logger.ErrorContext(ctx, "Error delivering trigger data", "error", err)
		}
	}()

	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing redis client", "error", err)
		}
	}

	return nil
}
