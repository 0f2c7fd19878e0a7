package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisherWithoutBrokersIsNoop(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: " , "}, zap.NewNop())
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), model.TrainingEvent{}))
	assert.NoError(t, p.Close())
}

func TestNewPublisherWithBrokers(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: "localhost:9092", Topic: "training-events"}, zap.NewNop())
	kp, ok := p.(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "training-events", kp.topic)
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "training-events", logger: zap.NewNop()}

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), model.TrainingEvent{
		Type:      model.EventTrainingSucceeded,
		RunID:     "abc",
		Ticker:    "AMBA",
		StartTime: start,
		Metrics:   &model.Metrics{TestMAE: 1.5},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "AMBA", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, model.EventTrainingSucceeded, string(msg.Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "training.succeeded", decoded["type"])
	assert.Equal(t, "abc", decoded["run_id"])
	assert.NotContains(t, decoded, "error")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherReturnsWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, topic: "t", logger: zap.NewNop()}
	assert.Error(t, p.Publish(context.Background(), model.TrainingEvent{Type: model.EventTrainingFailed}))
}
