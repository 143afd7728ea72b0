// Package memory is an in-process broker. Every subscriber of a topic gets
// every message published on it after it subscribed.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/GKaszewski/k-core/pkg/broker"
)

// Broker fans messages out to per-subscription buffered channels. A full
// subscriber buffer blocks the publisher until the subscriber reads, the
// subscription ends, or the publish context is done.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*broker.Stream]struct{}
	closed bool
	buffer int
}

var _ broker.Broker = (*Broker)(nil)

// Option configures a Broker.
type Option func(*Broker)

// WithBuffer sets the per-subscription buffer.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.buffer = n
		}
	}
}

// New creates an empty broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		topics: make(map[string]map[*broker.Stream]struct{}),
		buffer: broker.DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := broker.ValidateTopic(topic); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return broker.ErrClosed
	}
	subs := make([]*broker.Stream, 0, len(b.topics[topic]))
	for s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.Deliver(ctx, slices.Clone(payload)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topic string) (broker.Subscription, error) {
	if err := broker.ValidateTopic(topic); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, broker.ErrClosed
	}

	s := broker.NewStreamFunc(ctx, b.buffer, func(s *broker.Stream) error {
		b.remove(topic, s)
		return nil
	})
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*broker.Stream]struct{})
	}
	b.topics[topic][s] = struct{}{}
	return s, nil
}

func (b *Broker) remove(topic string, s *broker.Stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics[topic], s)
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Subscribers reports the live subscriptions on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close ends every subscription. Publishing afterwards fails with
// broker.ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*broker.Stream
	for _, set := range b.topics {
		for s := range set {
			subs = append(subs, s)
		}
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}
