package worker

import (
	"context"

	"warung-service/internal/broker"
	"warung-service/internal/models"
	"warung-service/internal/redisclient"
	"warung-service/internal/util"

	"go.uber.org/zap"
)

// CacheWorker keeps the redis product cache honest: whenever an engine
// operation commits a stock change, the StockAdjusted event lands here and
// the affected cache entries are dropped.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache invalidation worker
func NewCacheWorker(consumer *broker.Consumer, redis *redisclient.Client) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockAdjusted(w.handleStockAdjusted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping cache worker")
	return w.consumer.Close()
}

func (w *CacheWorker) handleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	if err := w.redis.InvalidateProducts(ctx, event.ProductIDs...); err != nil {
		w.logger.Error("Failed to invalidate product cache",
			zap.Int64("order_id", event.OrderID),
			zap.Int64s("product_ids", event.ProductIDs),
			zap.Error(err))
		return err
	}

	w.logger.Debug("Product cache invalidated",
		zap.Int64("order_id", event.OrderID),
		zap.Int64s("product_ids", event.ProductIDs))
	return nil
}
