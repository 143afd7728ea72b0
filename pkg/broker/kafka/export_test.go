package kafka

import "github.com/segmentio/kafka-go"

func (b *Broker) PartitionReader(topic string, partition int) (*kafka.Reader, error) {
	return b.partitionReader(topic, partition)
}
