package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes write events to NATS. Subjects are formed as
// <topic>.<partitionKey> so per-conversation consumers can subscribe
// narrowly while ordering within a conversation is preserved.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the NATS server.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("chat-storage-writer"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish sends the payload, fire-and-forget.
func (p *NATSPublisher) Publish(_ context.Context, topic, partitionKey string, payload []byte) error {
	return p.conn.Publish(topic+"."+partitionKey, payload)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	p.conn.Drain()
}
