package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"warung-service/internal/broker"
	"warung-service/internal/models"
	"warung-service/internal/redisclient"
	"warung-service/internal/store"
	"warung-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService is the order-stock reconciliation engine. Every operation
// runs its full catalog/store sequence inside one storage transaction, so a
// failure partway through leaves nothing behind.
type OrderService struct {
	store  store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	logger *zap.Logger

	// Serializes operations on the same order within this process. The
	// redis lock extends the same guarantee across instances.
	orderLocks sync.Map
}

// NewOrderService creates a new order service. redis and events may be nil;
// locking then degrades to in-process only and no events are published.
func NewOrderService(store store.Store, redis *redisclient.Client, events *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:  store,
		redis:  redis,
		events: events,
		logger: util.GetLogger(),
	}
}

// ItemRequest identifies a product by id or by case-insensitive substring
// name match (first match wins), with the quantity to order. UnitPrice is
// only honored on update; zero means "use the catalog price".
type ItemRequest struct {
	ProductID   int64  `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity" binding:"required"`
	UnitPrice   int64  `json:"unit_price,omitempty"`
}

func (r ItemRequest) ref() string {
	if r.ProductID > 0 {
		return fmt.Sprintf("id=%d", r.ProductID)
	}
	return r.ProductName
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	OrderDate      string        `json:"order_date" binding:"required"`
	PaymentMethod  string        `json:"payment_method" binding:"required"`
	Note           string        `json:"note,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Items          []ItemRequest `json:"items" binding:"required,min=1"`
}

// UpdateOrderRequest carries new header fields and the desired full list of
// line items that should exist after reconciliation.
type UpdateOrderRequest struct {
	OrderDate     string        `json:"order_date" binding:"required"`
	PaymentMethod string        `json:"payment_method" binding:"required"`
	Note          string        `json:"note,omitempty"`
	Items         []ItemRequest `json:"items" binding:"required"`
}

// OrderWithItems is an order header together with its line items.
type OrderWithItems struct {
	Order models.Order      `json:"order"`
	Items []models.LineItem `json:"items"`
}

// CreateOrder creates an order from the requested items. Per-item failures
// never abort the loop; they are collected and reported alongside the result,
// and the order status distinguishes full from partial success. If no item
// succeeds the transaction is rolled back and nothing is persisted.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderWithItems, []ItemError, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconcileLatency.WithLabelValues("create").Observe(time.Since(start).Seconds())
	}()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("create", "no_items").Inc()
		return nil, nil, NewError(KindValidation, "order must contain at least one item")
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	} else if existing := s.findByIdempotencyKey(ctx, req.IdempotencyKey); existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.Order.ID))
		return existing, nil, nil
	}

	var (
		result     OrderWithItems
		itemErrs   []ItemError
		productIDs []int64
	)

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order := &models.Order{
			OrderDate:      req.OrderDate,
			TotalAmount:    0,
			Status:         models.OrderStatusPending,
			PaymentMethod:  req.PaymentMethod,
			Note:           req.Note,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order header: %w", err)
		}

		var (
			total int64
			items []models.LineItem
			seen  = make(map[int64]bool)
		)

		for i, it := range req.Items {
			product, itemErr := s.checkItem(ctx, tx, i, it, seen)
			if itemErr != nil {
				itemErrs = append(itemErrs, *itemErr)
				continue
			}
			seen[product.ID] = true

			li := models.LineItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  it.Quantity,
				UnitPrice: product.UnitPrice,
				LineTotal: int64(it.Quantity) * product.UnitPrice,
			}
			if err := tx.CreateLineItem(ctx, &li); err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
			if err := tx.UpdateProductStock(ctx, product.ID, product.Stock-it.Quantity); err != nil {
				return fmt.Errorf("failed to adjust stock for product %d: %w", product.ID, err)
			}

			total += li.LineTotal
			items = append(items, li)
			productIDs = append(productIDs, product.ID)
		}

		// Nothing succeeded: roll the header back and fail the whole call.
		if len(items) == 0 {
			return NewError(KindValidation, "no line items could be created (%d item errors)", len(itemErrs))
		}

		order.TotalAmount = total
		order.Status = models.OrderStatusSuccess
		if len(itemErrs) > 0 {
			order.Status = models.OrderStatusPartialSuccess
			order.Note = appendErrorNote(order.Note, len(itemErrs))
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to finalize order header: %w", err)
		}

		result = OrderWithItems{Order: *order, Items: items}
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("create", "rolled_back").Inc()
		countItemErrors(itemErrs)
		return nil, itemErrs, err
	}

	util.OrdersCreatedTotal.Inc()
	countItemErrors(itemErrs)
	s.logger.Info("Order created",
		zap.Int64("order_id", result.Order.ID),
		zap.String("status", result.Order.Status),
		zap.Int("items", len(result.Items)),
		zap.Int("item_errors", len(itemErrs)))

	s.publishOrderEvent(ctx, models.EventTypeOrderCreated, &result, productIDs)
	return &result, itemErrs, nil
}

// GetOrder retrieves an order header and its line items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderWithItems, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	var result OrderWithItems
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		items, err := tx.LineItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		result = OrderWithItems{Order: *order, Items: items}
		return nil
	})
	if err != nil {
		return nil, s.wrapLookup(err, "order %d", orderID)
	}
	return &result, nil
}

// ListOrders retrieves all orders with their line items, oldest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]OrderWithItems, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	var result []OrderWithItems
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		orders, err := tx.Orders(ctx)
		if err != nil {
			return err
		}
		result = make([]OrderWithItems, 0, len(orders))
		for _, o := range orders {
			items, err := tx.LineItemsByOrder(ctx, o.ID)
			if err != nil {
				return err
			}
			result = append(result, OrderWithItems{Order: o, Items: items})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LastOrder retrieves the most recent order (highest id) with its items.
// The chat layer's "update/delete the last transaction" tools resolve
// through this.
func (s *OrderService) LastOrder(ctx context.Context) (*OrderWithItems, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.LastOrder")
	defer span.End()

	var result OrderWithItems
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.LastOrder(ctx)
		if err != nil {
			return err
		}
		items, err := tx.LineItemsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		result = OrderWithItems{Order: *order, Items: items}
		return nil
	})
	if err != nil {
		return nil, s.wrapLookup(err, "last order")
	}
	return &result, nil
}

// UpdateOrder reconciles an order against the desired line item list.
// Desired items matching an existing item by product id are updated in place
// keeping their identity, new products create new items, and items no longer
// requested are deleted with their stock replenished. Stock moves by the
// quantity delta in every case. Per-item failures leave the matched item
// untouched and are reported alongside the result.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*OrderWithItems, []ItemError, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconcileLatency.WithLabelValues("update").Observe(time.Since(start).Seconds())
	}()

	unlock := s.lockOrder(ctx, orderID)
	defer unlock()

	var (
		result     OrderWithItems
		itemErrs   []ItemError
		productIDs []int64
	)

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}

		current, err := tx.LineItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		existing := make(map[int64]models.LineItem, len(current))
		for _, li := range current {
			existing[li.ProductID] = li
		}

		var (
			finalItems []models.LineItem
			seen       = make(map[int64]bool)
		)

		for i, it := range req.Items {
			product, itemErr := s.resolveItem(ctx, tx, i, it, seen)
			if itemErr != nil {
				// A matched item that failed stays as it was and must not
				// be swept up by the deletion pass below. The product still
				// counts as seen so a later entry for it conflicts instead
				// of creating a second line item.
				if product != nil {
					seen[product.ID] = true
					if old, ok := existing[product.ID]; ok {
						finalItems = append(finalItems, old)
						delete(existing, product.ID)
					}
				}
				itemErrs = append(itemErrs, *itemErr)
				continue
			}
			seen[product.ID] = true

			price := it.UnitPrice
			if price <= 0 {
				price = product.UnitPrice
			}

			if old, ok := existing[product.ID]; ok {
				delta := it.Quantity - old.Quantity
				if delta > 0 && product.Stock < delta {
					itemErrs = append(itemErrs, newItemError(i, it.ref(), KindInsufficientStock,
						"insufficient stock for product %d: available=%d, additional=%d",
						product.ID, product.Stock, delta))
					finalItems = append(finalItems, old)
					delete(existing, product.ID)
					continue
				}

				old.Quantity = it.Quantity
				old.UnitPrice = price
				old.LineTotal = int64(it.Quantity) * price
				if err := tx.UpdateLineItem(ctx, &old); err != nil {
					return fmt.Errorf("failed to update line item %d: %w", old.ID, err)
				}
				if err := tx.UpdateProductStock(ctx, product.ID, product.Stock-delta); err != nil {
					return fmt.Errorf("failed to adjust stock for product %d: %w", product.ID, err)
				}
				finalItems = append(finalItems, old)
				delete(existing, product.ID)
				productIDs = append(productIDs, product.ID)
				continue
			}

			if product.Stock < it.Quantity {
				itemErrs = append(itemErrs, newItemError(i, it.ref(), KindInsufficientStock,
					"insufficient stock for product %d: available=%d, requested=%d",
					product.ID, product.Stock, it.Quantity))
				continue
			}
			li := models.LineItem{
				OrderID:   orderID,
				ProductID: product.ID,
				Quantity:  it.Quantity,
				UnitPrice: price,
				LineTotal: int64(it.Quantity) * price,
			}
			if err := tx.CreateLineItem(ctx, &li); err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
			if err := tx.UpdateProductStock(ctx, product.ID, product.Stock-it.Quantity); err != nil {
				return fmt.Errorf("failed to adjust stock for product %d: %w", product.ID, err)
			}
			finalItems = append(finalItems, li)
			productIDs = append(productIDs, product.ID)
		}

		// Everything left was not requested anymore: delete and replenish.
		for _, old := range sortByID(existing) {
			product, err := tx.ProductForUpdate(ctx, old.ProductID)
			if err != nil {
				itemErrs = append(itemErrs, newItemError(-1, fmt.Sprintf("id=%d", old.ProductID),
					KindOf(err), "stock not replenished for removed item: %v", err))
			} else {
				if err := tx.UpdateProductStock(ctx, product.ID, product.Stock+old.Quantity); err != nil {
					return fmt.Errorf("failed to replenish stock for product %d: %w", product.ID, err)
				}
				productIDs = append(productIDs, product.ID)
			}
			if _, err := tx.DeleteLineItem(ctx, old.ID); err != nil {
				return fmt.Errorf("failed to delete line item %d: %w", old.ID, err)
			}
		}

		var total int64
		for _, li := range finalItems {
			total += li.LineTotal
		}

		order.OrderDate = req.OrderDate
		order.PaymentMethod = req.PaymentMethod
		order.Note = req.Note
		order.TotalAmount = total
		order.Status = models.OrderStatusSuccess
		if len(itemErrs) > 0 {
			order.Status = models.OrderStatusPartialSuccess
			order.Note = appendErrorNote(order.Note, len(itemErrs))
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to finalize order header: %w", err)
		}

		result = OrderWithItems{Order: *order, Items: finalItems}
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("update", "rolled_back").Inc()
		countItemErrors(itemErrs)
		return nil, itemErrs, s.wrapLookup(err, "order %d", orderID)
	}

	util.OrdersUpdatedTotal.Inc()
	countItemErrors(itemErrs)
	s.logger.Info("Order reconciled",
		zap.Int64("order_id", orderID),
		zap.String("status", result.Order.Status),
		zap.Int("items", len(result.Items)),
		zap.Int("item_errors", len(itemErrs)))

	s.publishOrderEvent(ctx, models.EventTypeOrderUpdated, &result, productIDs)
	return &result, itemErrs, nil
}

// CancelOrder deletes an order and its line items, replenishing stock for
// every remaining item. A missing product is a non-fatal per-item error;
// deleting the header decides overall success.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) ([]ItemError, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconcileLatency.WithLabelValues("cancel").Observe(time.Since(start).Seconds())
	}()

	unlock := s.lockOrder(ctx, orderID)
	defer unlock()

	var (
		itemErrs   []ItemError
		productIDs []int64
	)

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		items, err := tx.LineItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		for _, li := range items {
			product, err := tx.ProductForUpdate(ctx, li.ProductID)
			if err != nil {
				itemErrs = append(itemErrs, newItemError(-1, fmt.Sprintf("id=%d", li.ProductID),
					KindOf(err), "stock not replenished: %v", err))
			} else {
				if err := tx.UpdateProductStock(ctx, product.ID, product.Stock+li.Quantity); err != nil {
					return fmt.Errorf("failed to replenish stock for product %d: %w", product.ID, err)
				}
				productIDs = append(productIDs, product.ID)
			}
			if _, err := tx.DeleteLineItem(ctx, li.ID); err != nil {
				return fmt.Errorf("failed to delete line item %d: %w", li.ID, err)
			}
		}

		deleted, err := tx.DeleteOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to delete order %d: %w", orderID, err)
		}
		if !deleted {
			return NewError(KindNotFound, "order %d not found", orderID)
		}
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("cancel", "rolled_back").Inc()
		countItemErrors(itemErrs)
		return itemErrs, err
	}

	util.OrdersCancelledTotal.Inc()
	countItemErrors(itemErrs)
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int("item_errors", len(itemErrs)))

	s.publishCancelEvent(ctx, orderID, productIDs)
	return itemErrs, nil
}

// checkItem resolves and validates one requested item during creation.
func (s *OrderService) checkItem(ctx context.Context, tx store.Tx, index int, it ItemRequest, seen map[int64]bool) (*models.Product, *ItemError) {
	product, itemErr := s.resolveItem(ctx, tx, index, it, seen)
	if itemErr != nil {
		return nil, itemErr
	}
	if product.Stock < it.Quantity {
		e := newItemError(index, it.ref(), KindInsufficientStock,
			"insufficient stock for product %d: available=%d, requested=%d",
			product.ID, product.Stock, it.Quantity)
		return nil, &e
	}
	return product, nil
}

// resolveItem resolves an item's product and runs the validations shared by
// creation and reconciliation. A non-nil product with a non-nil error means
// the product resolved but the item is invalid.
func (s *OrderService) resolveItem(ctx context.Context, tx store.Tx, index int, it ItemRequest, seen map[int64]bool) (*models.Product, *ItemError) {
	product, err := s.resolveProduct(ctx, tx, it)
	if err != nil {
		e := newItemError(index, it.ref(), KindOf(err), "%v", err)
		return nil, &e
	}
	if it.Quantity <= 0 {
		e := newItemError(index, it.ref(), KindValidation,
			"quantity must be positive, got %d", it.Quantity)
		return product, &e
	}
	if seen[product.ID] {
		e := newItemError(index, it.ref(), KindConflict,
			"duplicate item for product %d in one request", product.ID)
		return product, &e
	}
	return product, nil
}

// resolveProduct resolves by id when given, otherwise by name, and locks the
// resolved row for the rest of the transaction.
func (s *OrderService) resolveProduct(ctx context.Context, tx store.Tx, it ItemRequest) (*models.Product, error) {
	if it.ProductID > 0 {
		return tx.ProductForUpdate(ctx, it.ProductID)
	}
	if strings.TrimSpace(it.ProductName) == "" {
		return nil, NewError(KindValidation, "item has neither product_id nor product_name")
	}
	product, err := tx.ProductByName(ctx, it.ProductName)
	if err != nil {
		return nil, err
	}
	return tx.ProductForUpdate(ctx, product.ID)
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) *OrderWithItems {
	var result *OrderWithItems
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.OrderByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		items, err := tx.LineItemsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		result = &OrderWithItems{Order: *order, Items: items}
		return nil
	})
	if err != nil {
		return nil
	}
	return result
}

// lockOrder serializes operations on one order. The local mutex is the
// guarantee; the redis lock extends it across instances and is best-effort
// when redis is down.
func (s *OrderService) lockOrder(ctx context.Context, orderID int64) func() {
	v, _ := s.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	if s.redis == nil {
		return mu.Unlock
	}

	key := fmt.Sprintf("order:%d", orderID)
	acquired := false
	for i := 0; i < 50; i++ {
		ok, err := s.redis.AcquireLock(ctx, key, 10*time.Second)
		if err != nil {
			s.logger.Warn("Redis lock unavailable, relying on local lock",
				zap.Int64("order_id", orderID), zap.Error(err))
			break
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	return func() {
		if acquired {
			if err := s.redis.ReleaseLock(context.Background(), key); err != nil {
				s.logger.Error("Failed to release order lock",
					zap.Int64("order_id", orderID), zap.Error(err))
			}
		}
		mu.Unlock()
	}
}

func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, result *OrderWithItems, productIDs []int64) {
	if s.events == nil {
		return
	}

	items := make([]models.LineItemData, 0, len(result.Items))
	for _, li := range result.Items {
		items = append(items, models.LineItemData{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			LineTotal: li.LineTotal,
		})
	}

	var err error
	switch eventType {
	case models.EventTypeOrderCreated:
		err = s.events.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
			OrderID:     result.Order.ID,
			Status:      result.Order.Status,
			TotalAmount: result.Order.TotalAmount,
			Items:       items,
		})
	case models.EventTypeOrderUpdated:
		err = s.events.PublishOrderUpdated(ctx, &models.OrderUpdatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderUpdated),
			OrderID:     result.Order.ID,
			Status:      result.Order.Status,
			TotalAmount: result.Order.TotalAmount,
			Items:       items,
		})
	}
	if err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType), zap.Error(err))
	}

	s.publishStockAdjusted(ctx, result.Order.ID, productIDs)
}

func (s *OrderService) publishCancelEvent(ctx context.Context, orderID int64, productIDs []int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCancelled(ctx, &models.OrderCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
	}); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
	s.publishStockAdjusted(ctx, orderID, productIDs)
}

func (s *OrderService) publishStockAdjusted(ctx context.Context, orderID int64, productIDs []int64) {
	if s.events == nil || len(productIDs) == 0 {
		return
	}
	if err := s.events.PublishStockAdjusted(ctx, &models.StockAdjustedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeStockAdjusted),
		OrderID:    orderID,
		ProductIDs: dedupe(productIDs),
	}); err != nil {
		s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}
}

// wrapLookup converts storage not-found sentinels into typed engine errors.
func (s *OrderService) wrapLookup(err error, format string, args ...interface{}) error {
	if KindOf(err) == KindNotFound {
		return NewError(KindNotFound, "%s not found", fmt.Sprintf(format, args...))
	}
	return err
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func appendErrorNote(note string, count int) string {
	suffix := fmt.Sprintf("%d item(s) failed", count)
	if note == "" {
		return suffix
	}
	return note + " | " + suffix
}

func countItemErrors(errs []ItemError) {
	for _, e := range errs {
		util.ItemErrorsTotal.WithLabelValues(string(e.Kind)).Inc()
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sortByID(m map[int64]models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(m))
	for _, li := range m {
		out = append(out, li)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
