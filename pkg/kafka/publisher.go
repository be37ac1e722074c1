// Package kafka publishes events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"

	kafkaGo "github.com/segmentio/kafka-go"
)

// Publisher writes events to a single topic. The routing key travels in the
// "kind" header so consumers can filter without decoding the payload.
type Publisher struct {
	writer *kafkaGo.Writer
}

// NewPublisher creates a publisher for topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes one message keyed by key, so events of one order stay ordered
// within a partition.
func (p *Publisher) Publish(ctx context.Context, routingKey string, key string, body []byte) error {
	err := p.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:     []byte(key),
		Value:   body,
		Headers: []kafkaGo.Header{{Key: "kind", Value: []byte(routingKey)}},
	})
	if err != nil {
		return fmt.Errorf("failed to write %s to kafka: %w", routingKey, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
