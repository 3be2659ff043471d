package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MessageHandler processes one raw message payload. Returning an error leaves
// the message unacknowledged so it is redelivered.
type MessageHandler func(ctx context.Context, payload []byte) error

// Subscriber consumes a Redis Stream through a consumer group. Entries whose
// handler fails stay pending and are read again from the consumer's pending
// list, at most once per retry backoff.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	field         string
	handler       MessageHandler
	batchSize     int64
	blockDuration time.Duration
	retryBackoff  time.Duration
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	// Field is the stream entry field carrying the payload. Defaults to "event".
	Field         string
	Handler       MessageHandler
	BatchSize     int64
	BlockDuration time.Duration
	RetryBackoff  time.Duration
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 5 * time.Second
	}
	if config.Field == "" {
		config.Field = "event"
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		field:         config.Field,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryBackoff:  config.RetryBackoff,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	// Create consumer group if it doesn't exist
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	slog.Info("subscriber started", "stream", s.stream, "group", s.group, "consumer", s.consumer)

	// Entries left pending by a previous run are retried first.
	pending := true
	var lastRetry time.Time
	for {
		select {
		case <-ctx.Done():
			slog.Info("subscriber stopping", "stream", s.stream)
			return nil
		default:
		}

		if pending && time.Since(lastRetry) >= s.retryBackoff {
			lastRetry = time.Now()
			failed, err := s.readMessages(ctx, "0")
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("error reading pending messages", "stream", s.stream, "error", err)
			} else {
				pending = failed > 0
			}
		}

		failed, err := s.readMessages(ctx, ">")
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("error reading messages", "stream", s.stream, "error", err)
			sleep(ctx, time.Second)
			continue
		}
		if failed > 0 {
			pending = true
		}
	}
}

// Stop is a no-op; shutdown is driven by the context passed to Start.
func (s *Subscriber) Stop(context.Context) error {
	return nil
}

// readMessages reads from id (">" for new entries, "0" for this consumer's
// pending ones), acknowledges handled entries and returns how many failed.
func (s *Subscriber) readMessages(ctx context.Context, id string) (int, error) {
	args := &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}
	if id != ">" {
		args.Block = -1
	}
	streams, err := s.client.XReadGroup(ctx, args).Result()

	if errors.Is(err, redis.Nil) {
		return 0, nil // No messages
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	failed := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := s.processMessage(ctx, message); err != nil {
				if !errors.Is(err, errMalformed) {
					slog.Error("failed to process message", "id", message.ID, "error", err)
					failed++
					continue
				}
				slog.Warn("dropping malformed message", "id", message.ID, "error", err)
			}

			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				slog.Error("failed to ack message", "id", message.ID, "error", err)
			}
		}
	}

	return failed, nil
}

var errMalformed = errors.New("malformed message")

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	payload, ok := message.Values[s.field].(string)
	if !ok {
		return fmt.Errorf("%w: missing field %q", errMalformed, s.field)
	}
	return s.handler(ctx, []byte(payload))
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
