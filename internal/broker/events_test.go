package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inventory-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, event interface{}) kafka.Message {
	t.Helper()

	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("order-test"), Value: value}
}

func TestHandleMessageRoutesOrderConfirmed(t *testing.T) {
	handler := NewEventHandler()

	var received *models.OrderConfirmedEvent
	handler.OnOrderConfirmed(func(ctx context.Context, event *models.OrderConfirmedEvent) error {
		received = event
		return nil
	})
	handler.OnOrderCancelled(func(ctx context.Context, event *models.OrderCancelledEvent) error {
		t.Fatal("cancelled handler should not fire for a confirmed event")
		return nil
	})

	msg := eventMessage(t, &models.OrderConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderConfirmed,
			Timestamp: time.Now(),
		},
		OrderID: "ord-42",
	})

	err := handler.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, "ord-42", received.OrderID)
	assert.Equal(t, "evt-1", received.EventID)
}

func TestHandleMessageRoutesOrderCancelled(t *testing.T) {
	handler := NewEventHandler()

	var received *models.OrderCancelledEvent
	handler.OnOrderCancelled(func(ctx context.Context, event *models.OrderCancelledEvent) error {
		received = event
		return nil
	})

	msg := eventMessage(t, &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: "ord-42",
		Reason:  "payment failed",
	})

	err := handler.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, "ord-42", received.OrderID)
	assert.Equal(t, "payment failed", received.Reason)
}

func TestHandleMessageIgnoresUnknownEventType(t *testing.T) {
	handler := NewEventHandler()
	handler.OnOrderConfirmed(func(ctx context.Context, event *models.OrderConfirmedEvent) error {
		t.Fatal("handler should not fire for unknown event types")
		return nil
	})

	msg := eventMessage(t, &models.BaseEvent{
		EventID:   "evt-3",
		EventType: "ORDER_SHIPPED",
		Timestamp: time.Now(),
	})

	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
