package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderUpdated   = "ORDER_UPDATED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeStockAdjusted  = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after an order is created and committed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64          `json:"order_id"`
	Status      string         `json:"status"`
	TotalAmount int64          `json:"total_amount"`
	Items       []LineItemData `json:"items"`
}

// OrderUpdatedEvent published after a reconciliation commits
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID     int64          `json:"order_id"`
	Status      string         `json:"status"`
	TotalAmount int64          `json:"total_amount"`
	Items       []LineItemData `json:"items"`
}

// OrderCancelledEvent published after an order and its items are deleted
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// StockAdjustedEvent published once per engine operation with every product
// whose stock changed; consumers use it to invalidate cached products.
type StockAdjustedEvent struct {
	BaseEvent
	OrderID    int64   `json:"order_id"`
	ProductIDs []int64 `json:"product_ids"`
}

// LineItemData represents line item data carried in events
type LineItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	LineTotal int64 `json:"line_total"`
}
