package kafka

import (
	"testing"
	"time"

	"payment-service/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestNewWriter(t *testing.T) {
	w := NewWriter(config.Kafka{
		Writer: config.KafkaWriter{BatchSize: 50, BatchTimeoutMs: 20},
		Broker: config.KafkaBroker{URL: "broker-1:9092,broker-2:9092"},
		Topic:  config.KafkaTopic{AuditEvents: "payment-audit"},
	})
	defer w.Close()

	assert.Equal(t, "payment-audit", w.Topic)
	assert.Equal(t, 50, w.BatchSize)
	assert.Equal(t, 20*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.False(t, w.Async)
}
