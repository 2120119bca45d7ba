package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"crypto-tracker/internal/interfaces"
	"crypto-tracker/internal/logger"
	"crypto-tracker/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter implements EventEmitter using Kafka
type KafkaEmitter struct {
	writer  messageWriter
	timeout time.Duration
	mu      sync.Mutex
}

var _ interfaces.EventEmitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates a new KafkaEmitter publishing watchlist matches to topic
func NewKafkaEmitter(brokerAddress, topic string, batchSize int, batchTimeout time.Duration) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokerAddress),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              batchSize,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
		timeout: 10 * time.Second,
	}
}

func (k *KafkaEmitter) EmitEvent(event models.MatchEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer == nil {
		return fmt.Errorf("kafka emitter is closed")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TxHash),
		Value: value,
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.GetLogger().Debug().
		Str("chain", event.Chain.String()).
		Str("txHash", event.TxHash).
		Str("category", event.Category).
		Msg("Emitted watchlist match to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
