package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-agnostic view handlers receive.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler handles a single consumed message. Returning an error logs the
// failure; the offset is committed either way so a poison message cannot
// wedge the group.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Config describes the consumer group subscription.
type Config struct {
	Brokers []string
	Group   string
	Topics  []string
}

// Consumer wraps a franz-go group consumer behind the Handler interface.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New connects a consumer group subscribed to cfg.Topics.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err.Error(),
			)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Timestamp: record.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.Error("message handler failed",
					"topic", record.Topic,
					"key", string(record.Key),
					"error", err.Error(),
				)
			}
		})
	}
}

// EnsureTopics creates the given topics if they do not exist yet. Safe to
// call on every startup.
func EnsureTopics(ctx context.Context, brokers []string, topics ...string) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("create kafka admin client: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}
