// Package broker defines the message broker capability: publish a payload on
// a named topic, subscribe to a topic as a channel of payloads.
package broker

import (
	"context"
	"strings"
	"unicode"
)

// Broker publishes and subscribes on named topics.
type Broker interface {
	// Publish sends payload on topic. Messages on one topic from one
	// publisher keep the transport's native order.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe starts delivery of messages published on topic after the
	// call. The subscription ends when it is closed or ctx is done.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Close() error
}

// Subscription is a live subscription to one topic.
type Subscription interface {
	// Messages yields payloads until the subscription ends, then is closed.
	Messages() <-chan []byte

	// Close cancels the subscription. It is safe to call more than once.
	Close() error
}

// ValidateTopic rejects empty topics and topics containing whitespace.
func ValidateTopic(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return ErrEmptyTopic
	}
	if strings.IndexFunc(topic, unicode.IsSpace) >= 0 {
		return ErrInvalidTopic
	}
	return nil
}
