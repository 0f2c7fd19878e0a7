package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/model"
)

// Publisher announces training lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event model.TrainingEvent) error
	Close() error
}

// messageWriter is the subset of kafka.Writer used by the producer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher produces training events as JSON messages keyed by ticker
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewPublisher returns a Kafka publisher when brokers are configured, a no-op one otherwise
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) Publisher {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		logger.Info("Kafka brokers not configured, training events disabled")
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}
	return &KafkaPublisher{writer: writer, topic: cfg.Topic, logger: logger}
}

// Publish sends one event to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, event model.TrainingEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("topic", p.topic),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Ticker),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", p.topic),
			zap.String("type", event.Type),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("topic", p.topic),
		zap.String("type", event.Type),
		zap.String("run_id", event.RunID))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.TrainingEvent) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }
