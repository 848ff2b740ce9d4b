package models

import "time"

// Product represents an item in the shop catalog. Stock is mutated only
// through order operations; the catalog API edits the other fields.
type Product struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	UnitPrice        int64     `db:"unit_price" json:"unit_price"`
	Stock            int       `db:"stock" json:"stock"`
	Location         string    `db:"location" json:"location,omitempty"`
	LocationHint     string    `db:"location_hint" json:"location_hint,omitempty"`
	PaymentImagePath string    `db:"payment_image_path" json:"payment_image_path,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order header. TotalAmount is always recomputed
// from the persisted line items, never taken from the caller.
type Order struct {
	ID             int64     `db:"id" json:"id"`
	OrderDate      string    `db:"order_date" json:"order_date"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Status         string    `db:"status" json:"status"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	Note           string    `db:"note" json:"note,omitempty"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LineItem is one product-quantity-price entry owned by exactly one order.
// UnitPrice is the price at order time; LineTotal = Quantity * UnitPrice.
type LineItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"unit_price" json:"unit_price"`
	LineTotal int64 `db:"line_total" json:"line_total"`
}

// Order statuses
const (
	OrderStatusPending        = "pending"
	OrderStatusSuccess        = "success"
	OrderStatusPartialSuccess = "partial_success"
	OrderStatusFailed         = "failed"
)
