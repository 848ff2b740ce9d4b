package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"warung-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestEventHandlerRoutesStockAdjusted(t *testing.T) {
	handler := NewEventHandler()

	var got *models.StockAdjustedEvent
	handler.OnStockAdjusted(func(ctx context.Context, event *models.StockAdjustedEvent) error {
		got = event
		return nil
	})

	msg := eventMessage(t, &models.StockAdjustedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "e1",
			EventType: models.EventTypeStockAdjusted,
			Timestamp: time.Now(),
		},
		OrderID:    42,
		ProductIDs: []int64{1, 3},
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.OrderID)
	assert.Equal(t, []int64{1, 3}, got.ProductIDs)
}

func TestEventHandlerIgnoresOtherEventTypes(t *testing.T) {
	handler := NewEventHandler()

	called := false
	handler.OnStockAdjusted(func(ctx context.Context, event *models.StockAdjustedEvent) error {
		called = true
		return nil
	})

	msg := eventMessage(t, &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "e2",
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: 7,
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	assert.False(t, called)
}

func TestEventHandlerRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
