package service

import (
	"context"
	"testing"

	"warung-service/internal/models"
	"warung-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*OrderService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewOrderService(st, nil, nil), st
}

func seedProduct(t *testing.T, st *store.MemoryStore, name string, price int64, stock int) int64 {
	t.Helper()
	p := &models.Product{Name: name, UnitPrice: price, Stock: stock}
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateProduct(context.Background(), p)
	})
	require.NoError(t, err)
	return p.ID
}

func productStock(t *testing.T, st *store.MemoryStore, id int64) int {
	t.Helper()
	var stock int
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		p, err := tx.ProductByID(context.Background(), id)
		if err != nil {
			return err
		}
		stock = p.Stock
		return nil
	})
	require.NoError(t, err)
	return stock
}

func TestCreateOrderRoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)
	bID := seedProduct(t, st, "Teh Kotak", 500, 5)

	result, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 2},
			{ProductID: bID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, itemErrs)
	assert.Equal(t, models.OrderStatusSuccess, result.Order.Status)
	assert.Equal(t, int64(2*1000+1*500), result.Order.TotalAmount)
	require.Len(t, result.Items, 2)

	// Total always equals the sum of line totals.
	var sum int64
	for _, li := range result.Items {
		sum += li.LineTotal
	}
	assert.Equal(t, result.Order.TotalAmount, sum)

	assert.Equal(t, 8, productStock(t, st, aID))
	assert.Equal(t, 4, productStock(t, st, bID))

	// Retrieval returns the same order, and is idempotent.
	got, err := svc.GetOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, got.Order.ID)
	assert.Equal(t, result.Order.TotalAmount, got.Order.TotalAmount)
	require.Len(t, got.Items, 2)

	again, err := svc.GetOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestCreateOrderResolvesByName(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	kopiID := seedProduct(t, st, "Kopi ABC", 2500, 20)
	seedProduct(t, st, "Kopi Susu", 3000, 20)

	result, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "qris",
		Items:         []ItemRequest{{ProductName: "kOpI", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Empty(t, itemErrs)

	// Case-insensitive substring match, first (lowest id) match wins.
	require.Len(t, result.Items, 1)
	assert.Equal(t, kopiID, result.Items[0].ProductID)
	assert.Equal(t, int64(3*2500), result.Order.TotalAmount)
	assert.Equal(t, 17, productStock(t, st, kopiID))
}

func TestCreateOrderPartialFailure(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Sari Roti", 15000, 10)

	result, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 2},
			{ProductName: "no-such-product", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPartialSuccess, result.Order.Status)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(2*15000), result.Order.TotalAmount)
	assert.Contains(t, result.Order.Note, "1 item(s) failed")

	require.Len(t, itemErrs, 1)
	assert.Equal(t, KindNotFound, itemErrs[0].Kind)
	assert.Equal(t, "no-such-product", itemErrs[0].Ref)

	// Stock adjusted only for the successful item.
	assert.Equal(t, 8, productStock(t, st, aID))
}

func TestCreateOrderAllItemsFailRollsBack(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Sari Roti", 15000, 1)

	_, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 5}, // more than stock
			{ProductName: "no-such-product", Quantity: 1},
		},
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	require.Len(t, itemErrs, 2)
	assert.Equal(t, KindInsufficientStock, itemErrs[0].Kind)
	assert.Equal(t, KindNotFound, itemErrs[1].Kind)

	// Compensating rollback: no header persisted, stock untouched.
	orders, listErr := svc.ListOrders(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, orders)
	assert.Equal(t, 1, productStock(t, st, aID))
}

func TestCreateOrderItemValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Teh Kotak", 500, 10)

	cases := []struct {
		name string
		item ItemRequest
		kind Kind
	}{
		{"zero quantity", ItemRequest{ProductID: aID, Quantity: 0}, KindValidation},
		{"negative quantity", ItemRequest{ProductID: aID, Quantity: -2}, KindValidation},
		{"missing reference", ItemRequest{Quantity: 1}, KindValidation},
		{"unknown id", ItemRequest{ProductID: 9999, Quantity: 1}, KindNotFound},
		{"insufficient stock", ItemRequest{ProductID: aID, Quantity: 11}, KindInsufficientStock},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
				OrderDate:     "2024-05-01",
				PaymentMethod: "cash",
				Items:         []ItemRequest{tc.item},
			})
			require.Error(t, err)
			require.Len(t, itemErrs, 1)
			assert.Equal(t, tc.kind, itemErrs[0].Kind)
			assert.Equal(t, 10, productStock(t, st, aID))
		})
	}
}

func TestCreateOrderDuplicateProductConflicts(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	result, itemErrs, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 2},
			{ProductName: "Kopi", Quantity: 3}, // resolves to the same product
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPartialSuccess, result.Order.Status)
	require.Len(t, result.Items, 1)
	require.Len(t, itemErrs, 1)
	assert.Equal(t, KindConflict, itemErrs[0].Kind)
	assert.Equal(t, 8, productStock(t, st, aID))
}

func TestCreateOrderIdempotencyKeyReplay(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	req := &CreateOrderRequest{
		OrderDate:      "2024-05-01",
		PaymentMethod:  "cash",
		IdempotencyKey: "retry-key-1",
		Items:          []ItemRequest{{ProductID: aID, Quantity: 2}},
	}

	first, _, err := svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	second, itemErrs, err := svc.CreateOrder(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, itemErrs)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	// Replay must not decrement stock again.
	assert.Equal(t, 8, productStock(t, st, aID))
}

func TestUpdateOrderReconciliation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)
	bID := seedProduct(t, st, "Teh Kotak", 500, 5)
	cID := seedProduct(t, st, "Sari Roti", 15000, 7)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 2},
			{ProductID: bID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Items, 2)
	aItemID := created.Items[0].ID

	// Desired list {A×3, C×1}: A updated in place, B deleted and
	// replenished, C newly created.
	updated, itemErrs, err := svc.UpdateOrder(ctx, created.Order.ID, &UpdateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "qris",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 3},
			{ProductID: cID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, itemErrs)

	assert.Equal(t, models.OrderStatusSuccess, updated.Order.Status)
	assert.Equal(t, int64(3*1000+1*15000), updated.Order.TotalAmount)
	require.Len(t, updated.Items, 2)

	// Matched item keeps its identity.
	assert.Equal(t, aItemID, updated.Items[0].ID)
	assert.Equal(t, 3, updated.Items[0].Quantity)

	assert.Equal(t, 7, productStock(t, st, aID)) // 10 - 2 - 1
	assert.Equal(t, 5, productStock(t, st, bID)) // fully replenished
	assert.Equal(t, 6, productStock(t, st, cID)) // 7 - 1

	// Stored state matches the returned result.
	got, err := svc.GetOrder(ctx, created.Order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	var sum int64
	for _, li := range got.Items {
		sum += li.LineTotal
	}
	assert.Equal(t, got.Order.TotalAmount, sum)
}

func TestUpdateOrderNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.UpdateOrder(context.Background(), 404, &UpdateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateOrderInsufficientDeltaKeepsExistingItem(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 3)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, productStock(t, st, aID))

	// Wants 2 more than the 1 remaining: the existing item stays as it was.
	updated, itemErrs, err := svc.UpdateOrder(ctx, created.Order.ID, &UpdateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Len(t, itemErrs, 1)
	assert.Equal(t, KindInsufficientStock, itemErrs[0].Kind)

	assert.Equal(t, models.OrderStatusPartialSuccess, updated.Order.Status)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 2, updated.Items[0].Quantity)
	assert.Equal(t, int64(2*1000), updated.Order.TotalAmount)
	assert.Equal(t, 1, productStock(t, st, aID))
}

func TestUpdateOrderFailedItemBlocksDuplicate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 2}},
	})
	require.NoError(t, err)

	// The first desired entry fails validation; the second references the
	// same product and must conflict rather than create a second line item.
	updated, itemErrs, err := svc.UpdateOrder(ctx, created.Order.ID, &UpdateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 0},
			{ProductID: aID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, itemErrs, 2)
	assert.Equal(t, KindValidation, itemErrs[0].Kind)
	assert.Equal(t, KindConflict, itemErrs[1].Kind)

	assert.Equal(t, models.OrderStatusPartialSuccess, updated.Order.Status)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 2, updated.Items[0].Quantity)
	assert.Equal(t, int64(2*1000), updated.Order.TotalAmount)
	assert.Equal(t, 8, productStock(t, st, aID))

	stored, err := svc.GetOrder(ctx, created.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
}

func TestUpdateOrderHonorsRequestedPrice(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 2}},
	})
	require.NoError(t, err)

	updated, itemErrs, err := svc.UpdateOrder(ctx, created.Order.ID, &UpdateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 2, UnitPrice: 900}},
	})
	require.NoError(t, err)
	assert.Empty(t, itemErrs)
	assert.Equal(t, int64(900), updated.Items[0].UnitPrice)
	assert.Equal(t, int64(2*900), updated.Order.TotalAmount)
	assert.Equal(t, 8, productStock(t, st, aID))
}

func TestCancelOrderReplenishesAndDeletes(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)
	bID := seedProduct(t, st, "Teh Kotak", 500, 5)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{ProductID: aID, Quantity: 2},
			{ProductID: bID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	itemErrs, err := svc.CancelOrder(ctx, created.Order.ID)
	require.NoError(t, err)
	assert.Empty(t, itemErrs)

	assert.Equal(t, 10, productStock(t, st, aID))
	assert.Equal(t, 5, productStock(t, st, bID))

	_, err = svc.GetOrder(ctx, created.Order.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCancelOrderMissingProductIsNonFatal(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	created, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 2}},
	})
	require.NoError(t, err)

	// The product disappears from the catalog before cancellation.
	err = st.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.DeleteProduct(ctx, aID)
		return err
	})
	require.NoError(t, err)

	itemErrs, err := svc.CancelOrder(ctx, created.Order.ID)
	require.NoError(t, err)
	require.Len(t, itemErrs, 1)
	assert.Equal(t, KindNotFound, itemErrs[0].Kind)

	_, err = svc.GetOrder(ctx, created.Order.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCancelOrderNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CancelOrder(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestLastOrder(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	aID := seedProduct(t, st, "Kopi ABC", 1000, 10)

	_, err := svc.LastOrder(ctx)
	assert.Equal(t, KindNotFound, KindOf(err))

	first, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-01",
		PaymentMethod: "cash",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 1}},
	})
	require.NoError(t, err)

	second, _, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		OrderDate:     "2024-05-02",
		PaymentMethod: "qris",
		Items:         []ItemRequest{{ProductID: aID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Greater(t, second.Order.ID, first.Order.ID)

	last, err := svc.LastOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Order.ID, last.Order.ID)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NewError(KindNotFound, "gone")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))

	err := NewError(KindInsufficientStock, "available=%d", 3)
	assert.ErrorIs(t, err, &Error{Kind: KindInsufficientStock})
	assert.Contains(t, err.Error(), "InsufficientStock")
	assert.Contains(t, err.Error(), "available=3")
}
