package service

import (
	"context"
	"testing"
	"time"

	"trendyol-sync-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(store *fakeStore, now time.Time) *Reconciler {
	r := NewReconciler(store, store)
	r.now = func() time.Time { return now }
	return r
}

func TestReconcileProductCreatesRecord(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := newTestReconciler(store, now)

	outcome := rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode:   "A",
		Title:     "Widget",
		Quantity:  5,
		ListPrice: 100,
		SalePrice: 90,
	}))

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, "A", outcome.Key)

	p, err := store.GetProduct(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 5, p.Quantity)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.LastStockUpdate)
	assert.Equal(t, now, p.LastPriceUpdate)

	// Defaults are normalized on the way in.
	assert.Equal(t, model.DefaultCurrencyType, p.CurrencyType)
	assert.Equal(t, model.DefaultVatRate, p.VatRate)
	assert.Equal(t, int64(model.DefaultCargoCompanyID), p.CargoCompanyID)
}

func TestReconcileBatchIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	outcomes := rec.ReconcileBatch(context.Background(), []model.RemoteRecord{
		model.ProductRecord(model.RemoteProduct{Barcode: "A", Quantity: 5, ListPrice: 10, SalePrice: 9}),
		model.ProductRecord(model.RemoteProduct{Barcode: "B", Quantity: -1}),
		model.ProductRecord(model.RemoteProduct{Barcode: "C", Quantity: 2, ListPrice: 20, SalePrice: 18}),
	})

	require.Len(t, outcomes, 3)

	// Outcomes come back in input order.
	assert.Equal(t, "A", outcomes[0].Key)
	assert.Equal(t, "B", outcomes[1].Key)
	assert.Equal(t, "C", outcomes[2].Key)

	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "invalid quantity", outcomes[1].Error)
	assert.True(t, outcomes[2].Success)

	// The invalid record left no trace; its siblings committed.
	b, _ := store.GetProduct(context.Background(), "B")
	assert.Nil(t, b)
	a, _ := store.GetProduct(context.Background(), "A")
	require.NotNil(t, a)
	assert.Equal(t, 5, a.Quantity)
}

func TestReconcileProductIsIdempotent(t *testing.T) {
	store := newFakeStore()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := newTestReconciler(store, first)

	rp := model.RemoteProduct{Barcode: "A", Title: "Widget", Quantity: 5, ListPrice: 100, SalePrice: 90}
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(rp)).Success)

	after, _ := store.GetProduct(context.Background(), "A")

	// Same record again at a later time: no observable change.
	rec.now = func() time.Time { return first.Add(time.Hour) }
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(rp)).Success)

	again, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, *after, *again)
}

func TestReconcileProductDerivedTimestamps(t *testing.T) {
	store := newFakeStore()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := newTestReconciler(store, t0)

	rp := model.RemoteProduct{Barcode: "A", Quantity: 5, ListPrice: 100, SalePrice: 90}
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(rp)).Success)

	// Quantity change refreshes only the stock timestamp.
	t1 := t0.Add(time.Hour)
	rec.now = func() time.Time { return t1 }
	rp.Quantity = 7
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(rp)).Success)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, t1, p.LastStockUpdate)
	assert.Equal(t, t0, p.LastPriceUpdate)

	// Price change refreshes only the price timestamp.
	t2 := t1.Add(time.Hour)
	rec.now = func() time.Time { return t2 }
	rp.SalePrice = 80
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(rp)).Success)

	p, _ = store.GetProduct(context.Background(), "A")
	assert.Equal(t, t1, p.LastStockUpdate)
	assert.Equal(t, t2, p.LastPriceUpdate)
	assert.Equal(t, t0, p.CreatedAt)
}

func TestReconcileStockDeltaOnMissingProduct(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	outcome := rec.ReconcileOne(context.Background(), model.StockRecord(model.StockDelta{
		Barcode:  "missing",
		Quantity: intPtr(3),
	}))

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrNotFound.Error(), outcome.Error)

	p, _ := store.GetProduct(context.Background(), "missing")
	assert.Nil(t, p)
}

func TestReconcileStockDeltaAppliesOnlyProvidedFields(t *testing.T) {
	store := newFakeStore()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := newTestReconciler(store, t0)

	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Title: "Widget", Quantity: 5, ListPrice: 100, SalePrice: 90,
	})).Success)

	t1 := t0.Add(time.Hour)
	rec.now = func() time.Time { return t1 }
	outcome := rec.ReconcileOne(context.Background(), model.StockRecord(model.StockDelta{
		Barcode:   "A",
		SalePrice: floatPtr(85),
	}))
	require.True(t, outcome.Success, outcome.Error)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 5, p.Quantity)
	assert.Equal(t, 100.0, p.ListPrice)
	assert.Equal(t, 85.0, p.SalePrice)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, t0, p.LastStockUpdate)
	assert.Equal(t, t1, p.LastPriceUpdate)
}

func TestReconcileOrderTerminalStatusNeverRegresses(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID: "o1", Status: model.OrderStatusCompleted, TotalPrice: floatPtr(50),
	})).Success)

	// A stale remote snapshot cannot undo completion.
	outcome := rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID: "o1", Status: model.OrderStatusProcessing, TotalPrice: floatPtr(50),
	}))
	require.True(t, outcome.Success, outcome.Error)

	o, _ := store.GetOrder(context.Background(), "o1")
	assert.Equal(t, model.OrderStatusCompleted, o.Status)
}

func TestReconcileOrderDefaultsAndPartialPayloads(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	// Empty status defaults to NEW.
	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID:    "o1",
		CustomerID: "c1",
		TotalPrice: floatPtr(120),
		Items:      []model.OrderItem{{Barcode: "A", Quantity: 2, Price: 60}},
	})).Success)

	o, _ := store.GetOrder(context.Background(), "o1")
	assert.Equal(t, model.OrderStatusNew, o.Status)

	// A status-only payload keeps the fields it did not carry.
	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID: "o1",
		Status:  model.OrderStatusShipped,
	})).Success)

	o, _ = store.GetOrder(context.Background(), "o1")
	assert.Equal(t, model.OrderStatusShipped, o.Status)
	assert.Equal(t, "c1", o.CustomerID)
	assert.Equal(t, 120.0, o.TotalPrice)
	assert.Len(t, o.Items, 1)
}

func TestReconcileOrderExplicitZeroTotalApplies(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID:    "o1",
		Status:     model.OrderStatusProcessing,
		TotalPrice: floatPtr(120),
	})).Success)

	// A full refund carries an explicit zero, which must overwrite.
	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID:    "o1",
		Status:     model.OrderStatusProcessing,
		TotalPrice: floatPtr(0),
	})).Success)

	o, _ := store.GetOrder(context.Background(), "o1")
	assert.Equal(t, 0.0, o.TotalPrice)
}

func TestReconcileRejectsMissingKey(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(store, time.Now().UTC())

	for _, r := range []model.RemoteRecord{
		model.ProductRecord(model.RemoteProduct{}),
		model.OrderRecord(model.RemoteOrder{Status: model.OrderStatusNew}),
		model.StockRecord(model.StockDelta{Quantity: intPtr(1)}),
	} {
		outcome := rec.ReconcileOne(context.Background(), r)
		assert.False(t, outcome.Success)
		assert.Equal(t, model.ErrMissingKey.Error(), outcome.Error)
	}
}
