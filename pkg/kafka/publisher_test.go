package kafka_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"toko-checkout/pkg/kafka"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishCancelledContext(t *testing.T) {
	p := kafka.NewPublisher([]string{"127.0.0.1:1"}, "toko.test")
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, "order.created", "order-1", []byte(`{}`))
	assert.ErrorContains(t, err, "order.created")
}

func TestPublishWritesKeyAndKindHeader(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	topic := "toko.test." + time.Now().Format("150405")
	addrs := strings.Split(brokers, ",")

	p := kafka.NewPublisher(addrs, topic)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, p.Publish(ctx, "order.paid", "order-42", []byte(`{"order_id":"order-42"}`)))
	require.NoError(t, p.Close())

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{Brokers: addrs, Topic: topic, Partition: 0})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, "order.paid", string(msg.Headers[0].Value))
}
