package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crispydelights/storefront/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
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

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "crispy.cart.updated", Topic("cart", "updated"))
	assert.Equal(t, "crispy.order.confirmed", Topic("order", "confirmed"))
}

func TestNewEvent_Fields(t *testing.T) {
	type payload struct {
		OrderNumber int `json:"order_number"`
	}

	event, err := NewEvent("order.confirmed", "sess-1", "cart", "storefront", payload{OrderNumber: 42})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "order.confirmed", event.EventType)
	assert.Equal(t, "sess-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, 42, got.OrderNumber)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	require.Error(t, err)
}

func TestEvent_Chaining(t *testing.T) {
	event, err := NewEvent("cart.updated", "sess-1", "cart", "storefront", nil)
	require.NoError(t, err)

	result := event.WithCorrelationID("corr-1").WithMetadata("k", "v")
	assert.Same(t, event, result)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "v", event.Metadata["k"])

	raw, err := event.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, restored.EventID)
	assert.Equal(t, event.Metadata, restored.Metadata)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, nil)

	event, err := NewEvent("cart.cleared", "sess-9", "cart", "storefront", map[string]string{"session_id": "sess-9"})
	require.NoError(t, err)

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	require.NoError(t, p.Publish(ctx, Topic("cart", "cleared"), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "crispy.cart.cleared", msg.Topic)
	assert.Equal(t, "sess-9", string(msg.Key))
	assert.Equal(t, "cart.cleared", header(msg, "event_type"))
	assert.Equal(t, "corr-42", header(msg, "correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "corr-42", decoded.CorrelationID)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewProducerWithWriter(w, nil, nil)

	event, err := NewEvent("cart.updated", "sess-1", "cart", "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "crispy.cart.updated", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to crispy.cart.updated")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, nil, nil)
	assert.Error(t, p.Ping(context.Background()))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, nil)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"broker1:9092"})
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.False(t, cfg.Async)
}
