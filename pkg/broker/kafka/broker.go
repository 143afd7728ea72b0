// Package kafka is a broker backed by Apache Kafka through kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/GKaszewski/k-core/pkg/broker"
	"github.com/GKaszewski/k-core/pkg/logger"
)

// Config holds the Kafka settings.
type Config struct {
	// Brokers are the bootstrap host:port addresses.
	Brokers []string

	// GroupID, when set, makes every subscription join this consumer group.
	// Without it each subscription opens one reader per partition that
	// exists when it subscribes, each starting at the partition's last offset.
	GroupID string

	// Buffer is the per-subscription channel capacity.
	Buffer int
}

// Broker writes through one shared kafka.Writer and gives every
// subscription its own kafka.Reader.
type Broker struct {
	config Config
	writer *kafka.Writer
	dialer *kafka.Dialer
	logger *slog.Logger
}

var _ broker.Broker = (*Broker)(nil)

// New creates a Kafka broker. No connection is made until the first publish
// or subscribe.
func New(c Config, log *slog.Logger) (*Broker, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if log == nil {
		log = logger.Nop()
	}
	if c.Buffer <= 0 {
		c.Buffer = broker.DefaultBuffer
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}

	return &Broker{config: c, writer: w, dialer: kafka.DefaultDialer, logger: log}, nil
}

// Writer returns the shared writer.
func (b *Broker) Writer() *kafka.Writer {
	return b.writer
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := broker.ValidateTopic(topic); err != nil {
		return err
	}
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topic string) (broker.Subscription, error) {
	if err := broker.ValidateTopic(topic); err != nil {
		return nil, err
	}

	readers, err := b.readers(ctx, topic)
	if err != nil {
		return nil, err
	}

	s := broker.NewStream(ctx, b.config.Buffer, func() error {
		var errs []error
		for _, r := range readers {
			errs = append(errs, r.Close())
		}
		return errors.Join(errs...)
	})
	log := b.logger.With("topic", topic)
	for _, r := range readers {
		s.Go(func(ctx context.Context) {
			b.consume(ctx, s, r, log)
		})
	}
	return s, nil
}

func (b *Broker) consume(ctx context.Context, s *broker.Stream, r *kafka.Reader, log *slog.Logger) {
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			log.Warn("failed to read kafka message", "partition", r.Config().Partition, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if err := s.Deliver(ctx, m.Value); err != nil {
			return
		}
	}
}

// readers opens the readers backing one subscription. With a group, kafka-go
// assigns partitions and tracks offsets. Without one, the reader's
// StartOffset is ignored, so each partition reader is moved to the last
// offset explicitly.
func (b *Broker) readers(ctx context.Context, topic string) ([]*kafka.Reader, error) {
	if b.config.GroupID != "" {
		return []*kafka.Reader{kafka.NewReader(kafka.ReaderConfig{
			Brokers:     b.config.Brokers,
			GroupID:     b.config.GroupID,
			Topic:       topic,
			StartOffset: kafka.LastOffset,
			MaxWait:     readerMaxWait,
		})}, nil
	}

	partitions := b.partitions(ctx, topic)
	readers := make([]*kafka.Reader, 0, len(partitions))
	for _, p := range partitions {
		r, err := b.partitionReader(topic, p)
		if err != nil {
			for _, open := range readers {
				open.Close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, nil
}

const (
	readerMaxWait = 500 * time.Millisecond
	lookupTimeout = 5 * time.Second
)

// partitions lists the topic's partitions. A topic that does not exist yet
// gets partition 0, which auto-creation produces on first publish.
func (b *Broker) partitions(ctx context.Context, topic string) []int {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var lastErr error
	for _, addr := range b.config.Brokers {
		parts, err := b.dialer.LookupPartitions(ctx, "tcp", addr, topic)
		if err != nil {
			lastErr = err
			continue
		}
		if len(parts) == 0 {
			break
		}
		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			ids = append(ids, p.ID)
		}
		slices.Sort(ids)
		return ids
	}
	if lastErr != nil {
		b.logger.Debug("partition lookup failed, reading partition 0", "topic", topic, "error", lastErr)
	}
	return []int{0}
}

func (b *Broker) partitionReader(topic string, partition int) (*kafka.Reader, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   b.config.Brokers,
		Topic:     topic,
		Partition: partition,
		MaxWait:   readerMaxWait,
	})
	if err := r.SetOffset(kafka.LastOffset); err != nil {
		r.Close()
		return nil, fmt.Errorf("positioning reader on partition %d: %w", partition, err)
	}
	return r, nil
}

// Close flushes pending writes.
func (b *Broker) Close() error {
	return b.writer.Close()
}
