// Package notify is the event-notification channel announcing newly written
// messages. Publishing is best-effort: the Writer logs failures and never
// propagates them to callers.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Publisher is the notification-channel contract. The partition key keeps
// per-conversation events ordered on partitioned transports.
type Publisher interface {
	Publish(ctx context.Context, topic, partitionKey string, payload []byte) error
	Close()
}

// LogPublisher logs events instead of publishing them. Development backend.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher returns a publisher that writes events to the log.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, topic, partitionKey string, payload []byte) error {
	p.log.Debug().
		Str("topic", topic).
		Str("partition_key", partitionKey).
		Int("bytes", len(payload)).
		Msg("notification event")
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() {}
