package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
)

// LogSink writes each event to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, events []Event) error {
	for _, ev := range events {
		s.logger.InfoContext(ctx, "sns event",
			"event_id", ev.ID,
			"kind", ev.Kind,
			"topic_arn", ev.TopicArn,
			"message_id", ev.MessageID,
			"subject", ev.Subject,
		)
	}
	return nil
}

// Publisher is the subset of the go-redis client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink publishes each event as JSON on a Redis pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink creates a sink publishing to channel.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = "snsgate:events"
	}
	return &RedisSink{client: client, channel: channel}
}

// Deliver publishes every event and reports all failures together.
func (s *RedisSink) Deliver(ctx context.Context, events []Event) error {
	var errs *multierror.Error
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("marshaling event %s: %w", ev.ID, err))
			continue
		}
		if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("publishing event %s: %w", ev.ID, err))
		}
	}
	return errs.ErrorOrNil()
}
