package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The partition key keeps all events for one user on one partition so
// consumers observe them in order.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
