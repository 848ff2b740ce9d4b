package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"warung-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore connects to Postgres and configures the pool.
func NewSQLStore(databaseURL string) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a database transaction, rolling back on error.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sqlx.Tx
}

var _ Tx = (*sqlTx)(nil)

// CreateProduct inserts a product and fills in its generated fields.
func (t *sqlTx) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, unit_price, stock, location, location_hint, payment_image_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, p, query,
		p.Name, p.UnitPrice, p.Stock, p.Location, p.LocationHint, p.PaymentImagePath)
}

// ProductByID retrieves a product by ID
func (t *sqlTx) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := t.tx.GetContext(ctx, &p, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductForUpdate retrieves a product and locks its row until commit.
func (t *sqlTx) ProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := t.tx.GetContext(ctx, &p, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductByName retrieves the first product whose name contains the given
// string, case-insensitively. Lowest id wins on multiple matches.
func (t *sqlTx) ProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := t.tx.GetContext(ctx, &p,
		"SELECT * FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY id LIMIT 1", name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Products retrieves all products
func (t *sqlTx) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := t.tx.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// UpdateProduct updates all mutable product fields.
func (t *sqlTx) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET name = $1, unit_price = $2, stock = $3, location = $4,
		    location_hint = $5, payment_image_path = $6, updated_at = NOW()
		WHERE id = $7`,
		p.Name, p.UnitPrice, p.Stock, p.Location, p.LocationHint, p.PaymentImagePath, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// UpdateProductStock sets a product's stock count.
func (t *sqlTx) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2", stock, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProduct deletes a product, reporting whether a row was removed.
func (t *sqlTx) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateOrder inserts an order header and fills in its generated fields.
func (t *sqlTx) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (order_date, total_amount, status, payment_method, note, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, o, query,
		o.OrderDate, o.TotalAmount, o.Status, o.PaymentMethod, o.Note, o.IdempotencyKey)
}

// OrderByID retrieves an order header by ID
func (t *sqlTx) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	err := t.tx.GetContext(ctx, &o, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderByIdempotencyKey retrieves an order by idempotency key
func (t *sqlTx) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	err := t.tx.GetContext(ctx, &o, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order with key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Orders retrieves all order headers, oldest first.
func (t *sqlTx) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := t.tx.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY id")
	return orders, err
}

// LastOrder retrieves the order with the highest id.
func (t *sqlTx) LastOrder(ctx context.Context) (*models.Order, error) {
	var o models.Order
	err := t.tx.GetContext(ctx, &o, "SELECT * FROM orders ORDER BY id DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("last order: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrder updates an order header's mutable fields.
func (t *sqlTx) UpdateOrder(ctx context.Context, o *models.Order) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET order_date = $1, total_amount = $2, status = $3,
		    payment_method = $4, note = $5, updated_at = NOW()
		WHERE id = $6`,
		o.OrderDate, o.TotalAmount, o.Status, o.PaymentMethod, o.Note, o.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", o.ID, ErrNotFound)
	}
	return nil
}

// DeleteOrder deletes an order header, reporting whether a row was removed.
func (t *sqlTx) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateLineItem inserts a line item and fills in its generated id.
func (t *sqlTx) CreateLineItem(ctx context.Context, li *models.LineItem) error {
	query := `
		INSERT INTO line_items (order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return t.tx.GetContext(ctx, &li.ID, query,
		li.OrderID, li.ProductID, li.Quantity, li.UnitPrice, li.LineTotal)
}

// UpdateLineItem updates a line item's quantity, price and total in place.
func (t *sqlTx) UpdateLineItem(ctx context.Context, li *models.LineItem) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE line_items
		SET quantity = $1, unit_price = $2, line_total = $3
		WHERE id = $4`,
		li.Quantity, li.UnitPrice, li.LineTotal, li.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("line item %d: %w", li.ID, ErrNotFound)
	}
	return nil
}

// DeleteLineItem deletes a line item, reporting whether a row was removed.
func (t *sqlTx) DeleteLineItem(ctx context.Context, id int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM line_items WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LineItemsByOrder retrieves all line items for an order in insertion order.
func (t *sqlTx) LineItemsByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var items []models.LineItem
	err := t.tx.SelectContext(ctx, &items,
		"SELECT * FROM line_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
