package events

import "context"

// NoopConsumer stands in when no brokers are configured. The credential
// mirror then only moves through the synchronous registration and admin
// paths; directory-side edits stop propagating until Kafka is back.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}
