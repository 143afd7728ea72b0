// Package nats is a broker backed by NATS core publish/subscribe.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/GKaszewski/k-core/pkg/broker"
	"github.com/GKaszewski/k-core/pkg/logger"
)

const flushTimeout = 5 * time.Second

// Config holds the NATS connection settings.
type Config struct {
	// URL is a nats:// or tls:// server URL. Comma-separated URLs name a
	// cluster.
	URL string

	// Name is reported to the server as the client name.
	Name string

	// Buffer is the per-subscription channel capacity.
	Buffer int
}

// Broker publishes and subscribes through one NATS connection.
type Broker struct {
	conn   *nats.Conn
	buffer int
	logger *slog.Logger
}

var _ broker.Broker = (*Broker)(nil)

// New connects to the NATS server at c.URL.
func New(c Config, log *slog.Logger) (*Broker, error) {
	if log == nil {
		log = logger.Nop()
	}
	name := c.Name
	if name == "" {
		name = "kcore"
	}
	buffer := c.Buffer
	if buffer <= 0 {
		buffer = broker.DefaultBuffer
	}

	conn, err := nats.Connect(c.URL,
		nats.Name(name),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &Broker{conn: conn, buffer: buffer, logger: log}, nil
}

// Conn returns the underlying connection.
func (b *Broker) Conn() *nats.Conn {
	return b.conn
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := broker.ValidateTopic(topic); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topic string) (broker.Subscription, error) {
	if err := broker.ValidateTopic(topic); err != nil {
		return nil, err
	}

	msgs := make(chan *nats.Msg, b.buffer)
	sub, err := b.conn.ChanSubscribe(topic, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	// Make sure the server has the interest before returning, so a publish
	// right after Subscribe is not lost.
	fctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := b.conn.FlushWithContext(fctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s := broker.NewStream(ctx, 0, sub.Unsubscribe)
	s.Go(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				if err := s.Deliver(ctx, m.Data); err != nil {
					return
				}
			}
		}
	})
	return s, nil
}

// Close drops every subscription and the connection.
func (b *Broker) Close() error {
	if err := b.conn.Flush(); err != nil && b.conn.IsConnected() {
		b.logger.Warn("failed to flush nats connection", "error", err)
	}
	b.conn.Close()
	return nil
}
