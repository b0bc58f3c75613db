package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher stands in for the broker when no brokers are configured,
// keeping local development runnable without Kafka.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "published event", "event_type", eventType, "partition_key", partitionKey, "payload", string(payload))
	return nil
}
