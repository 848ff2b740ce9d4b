// Package store provides storage backends for the catalog and order data.
// Every engine operation runs inside a single transaction obtained through
// WithinTx; returning an error from the callback rolls everything back.
package store

import (
	"context"
	"errors"
	"fmt"

	"warung-service/internal/models"
)

// ErrNotFound is returned by lookups for missing rows. Callers translate it
// into their own error kinds.
var ErrNotFound = errors.New("not found")

// Tx exposes the catalog and order operations available inside a transaction.
type Tx interface {
	// Catalog
	CreateProduct(ctx context.Context, p *models.Product) error
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	// ProductForUpdate locks the product row for the rest of the transaction.
	ProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	// ProductByName returns the first case-insensitive substring match.
	ProductByName(ctx context.Context, name string) (*models.Product, error)
	Products(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	UpdateProductStock(ctx context.Context, id int64, stock int) error
	DeleteProduct(ctx context.Context, id int64) (bool, error)

	// Order headers
	CreateOrder(ctx context.Context, o *models.Order) error
	OrderByID(ctx context.Context, id int64) (*models.Order, error)
	OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	Orders(ctx context.Context) ([]models.Order, error)
	LastOrder(ctx context.Context) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	DeleteOrder(ctx context.Context, id int64) (bool, error)

	// Line items
	CreateLineItem(ctx context.Context, li *models.LineItem) error
	UpdateLineItem(ctx context.Context, li *models.LineItem) error
	DeleteLineItem(ctx context.Context, id int64) (bool, error)
	LineItemsByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error)
}

// Store runs functions within a storage transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// New constructs a Store by backend kind: "postgres" or "memory".
func New(kind, databaseURL string) (Store, error) {
	switch kind {
	case "postgres":
		return NewSQLStore(databaseURL)
	case "memory", "mem":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", kind)
	}
}
