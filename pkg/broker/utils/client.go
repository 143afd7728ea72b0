// Package brokerutils picks a broker backend from a URL and wraps it in a
// single dispatch handle.
package brokerutils

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/broker"
	"github.com/GKaszewski/k-core/pkg/broker/kafka"
	"github.com/GKaszewski/k-core/pkg/broker/memory"
	"github.com/GKaszewski/k-core/pkg/broker/nats"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/metrics"
)

// Kind tags the backend held by a Client.
type Kind string

const (
	KindMemory Kind = "memory"
	KindNATS   Kind = "nats"
	KindKafka  Kind = "kafka"
)

// DefaultURL is the in-process broker.
const DefaultURL = "memory://"

// Resolve maps a broker URL to a backend kind. There is no fallback: an
// unknown scheme is a configuration error.
func Resolve(url string) (Kind, error) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "memory://"):
		return KindMemory, nil
	case strings.HasPrefix(url, "nats://"), strings.HasPrefix(url, "tls://"):
		return KindNATS, nil
	case strings.HasPrefix(url, "kafka://"):
		if len(kafkaBrokers(url)) == 0 {
			return "", apperr.Configuration("kafka url names no brokers")
		}
		return KindKafka, nil
	default:
		return "", apperr.Configuration("unsupported broker url " + quote(url))
	}
}

func kafkaBrokers(url string) []string {
	hosts := strings.TrimPrefix(strings.TrimSpace(url), "kafka://")
	hosts, _, _ = strings.Cut(hosts, "/")
	var out []string
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func quote(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return `"` + url[:i] + `"`
	}
	return `"` + url + `"`
}

type NewBrokerOpts struct {
	URL        string
	ClientName string
	GroupID    string
	Buffer     int
	Logger     *slog.Logger
}

// Client is the broker handle. It holds exactly one backend and forwards
// every call to it after validating the topic.
type Client struct {
	kind   Kind
	broker broker.Broker
	logger *slog.Logger
}

var _ broker.Broker = (*Client)(nil)

// NewBroker resolves o.URL and opens the matching backend.
func NewBroker(_ context.Context, o *NewBrokerOpts) (*Client, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}
	url := o.URL
	if url == "" {
		url = DefaultURL
	}

	kind, err := Resolve(url)
	if err != nil {
		return nil, err
	}
	log = log.With("broker", string(kind))

	var b broker.Broker
	switch kind {
	case KindMemory:
		b = memory.New(memory.WithBuffer(bufferOr(o.Buffer)))
	case KindNATS:
		b, err = nats.New(nats.Config{URL: url, Name: o.ClientName, Buffer: o.Buffer}, log)
	case KindKafka:
		b, err = kafka.New(kafka.Config{Brokers: kafkaBrokers(url), GroupID: o.GroupID, Buffer: o.Buffer}, log)
	}
	if err != nil {
		return nil, apperr.Backend(string(kind), "broker.connect", err)
	}

	log.Debug("broker ready")
	return &Client{kind: kind, broker: b, logger: log}, nil
}

func bufferOr(n int) int {
	if n <= 0 {
		return broker.DefaultBuffer
	}
	return n
}

// Kind reports the active backend.
func (c *Client) Kind() Kind {
	if c == nil {
		return ""
	}
	return c.kind
}

func (c *Client) active(op string) (broker.Broker, error) {
	if c != nil && c.broker != nil {
		return c.broker, nil
	}
	slog.Default().Error("broker client has no backend", "op", op)
	return nil, &apperr.Error{Kind: apperr.KindInternal, Op: op, Msg: "broker client has no backend"}
}

// Publish validates topic and forwards to the backend.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := broker.ValidateTopic(topic); err != nil {
		return apperr.Validation(err.Error())
	}
	b, err := c.active("broker.publish")
	if err != nil {
		return err
	}

	start := time.Now()
	err = b.Publish(ctx, topic, payload)
	metrics.ObserveDispatch("broker", string(c.kind), "publish", start, err)
	if err != nil {
		return c.wrap("broker.publish", err)
	}
	return nil
}

// Subscribe validates topic and forwards to the backend.
func (c *Client) Subscribe(ctx context.Context, topic string) (broker.Subscription, error) {
	if err := broker.ValidateTopic(topic); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	b, err := c.active("broker.subscribe")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sub, err := b.Subscribe(ctx, topic)
	metrics.ObserveDispatch("broker", string(c.kind), "subscribe", start, err)
	if err != nil {
		return nil, c.wrap("broker.subscribe", err)
	}
	return sub, nil
}

// Close closes the backend.
func (c *Client) Close() error {
	b, err := c.active("broker.close")
	if err != nil {
		return err
	}
	if err := b.Close(); err != nil {
		return c.wrap("broker.close", err)
	}
	return nil
}

func (c *Client) wrap(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Backend(string(c.kind), op, err)
}

// Memory returns the in-process backend when it is the active one.
func (c *Client) Memory() (*memory.Broker, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.broker.(*memory.Broker)
	return b, ok
}

// NATS returns the NATS backend when it is the active one.
func (c *Client) NATS() (*nats.Broker, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.broker.(*nats.Broker)
	return b, ok
}

// Kafka returns the Kafka backend when it is the active one.
func (c *Client) Kafka() (*kafka.Broker, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.broker.(*kafka.Broker)
	return b, ok
}
