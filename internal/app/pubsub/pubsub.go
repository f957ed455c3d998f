// Package pubsub fans change notifications out to subscribers, in process or
// across replicas through Redis.
package pubsub

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed hub
var ErrClosed = errors.New("pubsub: hub closed")

// Subscription delivers the payloads published to one topic, in publish order
type Subscription interface {
	C() <-chan []byte
	Close() error
}

// Hub publishes payloads to topics
type Hub interface {
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe is effective when it returns; payloads published afterwards are delivered
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Claim reports whether the caller is the first to claim key within ttl.
	// Used to hand each event to exactly one consumer.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Close() error
}

// JobTopic is the topic carrying change events of a single job
func JobTopic(jobID string) string {
	return "job:" + jobID
}

// SessionTopic is the topic carrying new messages of a single chat session
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// SessionMessagesTopic carries every new chat message, for turn handlers
const SessionMessagesTopic = "session-messages"
