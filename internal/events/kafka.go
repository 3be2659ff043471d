package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig describes a consumer-group reader on a single topic.
type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	for i, broker := range c.Brokers {
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("broker[%d] must be in format host:port", i)
		}
	}
	if c.GroupID == "" {
		return fmt.Errorf("group id cannot be empty")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	return nil
}

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer feeds a topic to a MessageHandler. A message whose handler
// fails is retried with backoff before the next one is fetched, and offsets
// are committed only after the handler succeeds.
type KafkaConsumer struct {
	topic      string
	reader     messageReader
	handler    MessageHandler
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewKafkaConsumer(config KafkaConfig, handler MessageHandler) (*KafkaConsumer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	if config.MinBytes == 0 {
		config.MinBytes = 1
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 10e6
	}
	if config.MaxWait == 0 {
		config.MaxWait = time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		GroupID:     config.GroupID,
		Topic:       config.Topic,
		MinBytes:    config.MinBytes,
		MaxBytes:    config.MaxBytes,
		MaxWait:     config.MaxWait,
		StartOffset: kafka.FirstOffset,
	})
	return newKafkaConsumer(config.Topic, reader, handler), nil
}

func newKafkaConsumer(topic string, reader messageReader, handler MessageHandler) *KafkaConsumer {
	return &KafkaConsumer{
		topic:      topic,
		reader:     reader,
		handler:    handler,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Start blocks, consuming until ctx is cancelled.
func (k *KafkaConsumer) Start(ctx context.Context) error {
	slog.Info("kafka consumer started", "topic", k.topic)
	defer func() {
		if err := k.reader.Close(); err != nil {
			slog.Warn("failed to close kafka reader", "topic", k.topic, "error", err)
		}
	}()

	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("kafka consumer stopping", "topic", k.topic)
				return nil
			}
			slog.Error("failed to fetch kafka message", "topic", k.topic, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(k.backoff):
			}
			continue
		}

		if !k.handle(ctx, msg) {
			slog.Info("kafka consumer stopping", "topic", k.topic)
			return nil
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("failed to commit kafka message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

// handle runs the handler until it succeeds. It returns false when ctx ends
// first, leaving the message uncommitted.
func (k *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	delay := k.backoff
	for attempt := 1; ; attempt++ {
		err := k.handler(ctx, msg.Value)
		if err == nil {
			return true
		}
		slog.Error("failed to process kafka message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		if delay *= 2; delay > k.maxBackoff {
			delay = k.maxBackoff
		}
	}
}

// Stop is a no-op; shutdown is driven by the context passed to Start.
func (k *KafkaConsumer) Stop(context.Context) error {
	return nil
}
