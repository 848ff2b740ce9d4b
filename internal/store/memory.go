package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"warung-service/internal/models"
)

// MemoryStore is an in-memory Store used for development and tests. A single
// mutex serializes transactions; WithinTx snapshots the maps up front and
// restores them when the callback fails, giving commit/rollback semantics
// without a database.
type MemoryStore struct {
	mu sync.Mutex

	products  map[int64]models.Product
	orders    map[int64]models.Order
	lineItems map[int64]models.LineItem

	productSeq  int64
	orderSeq    int64
	lineItemSeq int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[int64]models.Product),
		orders:    make(map[int64]models.Order),
		lineItems: make(map[int64]models.LineItem),
	}
}

var _ Store = (*MemoryStore)(nil)

// Close implements Store; nothing to release.
func (s *MemoryStore) Close() error { return nil }

// WithinTx runs fn while holding the store lock, restoring the pre-call
// snapshot if fn returns an error.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	products  map[int64]models.Product
	orders    map[int64]models.Order
	lineItems map[int64]models.LineItem

	productSeq  int64
	orderSeq    int64
	lineItemSeq int64
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products:    make(map[int64]models.Product, len(s.products)),
		orders:      make(map[int64]models.Order, len(s.orders)),
		lineItems:   make(map[int64]models.LineItem, len(s.lineItems)),
		productSeq:  s.productSeq,
		orderSeq:    s.orderSeq,
		lineItemSeq: s.lineItemSeq,
	}
	for id, p := range s.products {
		snap.products[id] = p
	}
	for id, o := range s.orders {
		snap.orders[id] = o
	}
	for id, li := range s.lineItems {
		snap.lineItems[id] = li
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.products = snap.products
	s.orders = snap.orders
	s.lineItems = snap.lineItems
	s.productSeq = snap.productSeq
	s.orderSeq = snap.orderSeq
	s.lineItemSeq = snap.lineItemSeq
}

type memTx struct {
	s *MemoryStore
}

var _ Tx = (*memTx)(nil)

func (t *memTx) CreateProduct(ctx context.Context, p *models.Product) error {
	t.s.productSeq++
	p.ID = t.s.productSeq
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	t.s.products[p.ID] = *p
	return nil
}

func (t *memTx) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ProductForUpdate is identical to ProductByID here; the store lock already
// serializes the whole transaction.
func (t *memTx) ProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return t.ProductByID(ctx, id)
}

func (t *memTx) ProductByName(ctx context.Context, name string) (*models.Product, error) {
	needle := strings.ToLower(name)
	for _, id := range sortedKeys(t.s.products) {
		p := t.s.products[id]
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
}

func (t *memTx) Products(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(t.s.products))
	for _, id := range sortedKeys(t.s.products) {
		out = append(out, t.s.products[id])
	}
	return out, nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p *models.Product) error {
	cur, ok := t.s.products[p.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now()
	t.s.products[p.ID] = *p
	return nil
}

func (t *memTx) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	p, ok := t.s.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	p.Stock = stock
	p.UpdatedAt = time.Now()
	t.s.products[id] = p
	return nil
}

func (t *memTx) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	if _, ok := t.s.products[id]; !ok {
		return false, nil
	}
	delete(t.s.products, id)
	return true, nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *models.Order) error {
	t.s.orderSeq++
	o.ID = t.s.orderSeq
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	t.s.orders[o.ID] = *o
	return nil
}

func (t *memTx) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return &o, nil
}

func (t *memTx) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	for _, id := range sortedKeys(t.s.orders) {
		o := t.s.orders[id]
		if o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order with key %q: %w", key, ErrNotFound)
}

func (t *memTx) Orders(ctx context.Context) ([]models.Order, error) {
	out := make([]models.Order, 0, len(t.s.orders))
	for _, id := range sortedKeys(t.s.orders) {
		out = append(out, t.s.orders[id])
	}
	return out, nil
}

func (t *memTx) LastOrder(ctx context.Context) (*models.Order, error) {
	var last *models.Order
	for id, o := range t.s.orders {
		o := o
		if last == nil || id > last.ID {
			last = &o
		}
	}
	if last == nil {
		return nil, fmt.Errorf("last order: %w", ErrNotFound)
	}
	return last, nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *models.Order) error {
	cur, ok := t.s.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", o.ID, ErrNotFound)
	}
	o.CreatedAt = cur.CreatedAt
	o.UpdatedAt = time.Now()
	t.s.orders[o.ID] = *o
	return nil
}

func (t *memTx) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	if _, ok := t.s.orders[id]; !ok {
		return false, nil
	}
	delete(t.s.orders, id)
	return true, nil
}

func (t *memTx) CreateLineItem(ctx context.Context, li *models.LineItem) error {
	t.s.lineItemSeq++
	li.ID = t.s.lineItemSeq
	t.s.lineItems[li.ID] = *li
	return nil
}

func (t *memTx) UpdateLineItem(ctx context.Context, li *models.LineItem) error {
	if _, ok := t.s.lineItems[li.ID]; !ok {
		return fmt.Errorf("line item %d: %w", li.ID, ErrNotFound)
	}
	t.s.lineItems[li.ID] = *li
	return nil
}

func (t *memTx) DeleteLineItem(ctx context.Context, id int64) (bool, error) {
	if _, ok := t.s.lineItems[id]; !ok {
		return false, nil
	}
	delete(t.s.lineItems, id)
	return true, nil
}

func (t *memTx) LineItemsByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var out []models.LineItem
	for _, id := range sortedKeys(t.s.lineItems) {
		li := t.s.lineItems[id]
		if li.OrderID == orderID {
			out = append(out, li)
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
