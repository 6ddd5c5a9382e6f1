package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const marketKey = "market"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors events onto a topic, keyed by account so one
// account's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		BatchTimeout:           50 * time.Millisecond,
		MaxAttempts:            3,
	}

	logger.Info("kafka publisher created", logger.Fields{"brokers": brokers, "topic": topic})
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := event.AccountID
	if key == "" {
		key = marketKey
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error("kafka publish failed", err, logger.Fields{"topic": p.topic, "type": event.Type})
		return fmt.Errorf("kafka publish: %w", err)
	}

	logger.Debug("kafka event sent", logger.Fields{"topic": p.topic, "type": event.Type, "key": key})
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
