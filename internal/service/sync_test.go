package service

import (
	"context"
	"errors"
	"testing"

	"trendyol-sync-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSync(store *fakeStore, api *fakeAPI) *SyncService {
	rec := NewReconciler(store, store)
	return NewSyncService(api, rec, store, store)
}

func TestProductSyncWalksAllPages(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{
			{{Barcode: "A", Quantity: 1, ListPrice: 10, SalePrice: 9}},
			{{Barcode: "B", Quantity: 2, ListPrice: 20, SalePrice: 18}},
			{{Barcode: "C", Quantity: 3, ListPrice: 30, SalePrice: 27}},
		},
	}
	svc := newTestSync(store, api)

	result, err := svc.Run(context.Background(), SyncProducts, SyncParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.PagesFetched)
	assert.Equal(t, 3, result.RecordsReconciled)
	assert.Equal(t, 3, result.Succeeded)
	assert.Empty(t, result.Failures)

	products, _ := store.ListProducts(context.Background())
	assert.Len(t, products, 3)
}

func TestProductSyncSinglePageParam(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{
			{{Barcode: "A", Quantity: 1}},
			{{Barcode: "B", Quantity: 2}},
		},
	}
	svc := newTestSync(store, api)

	result, err := svc.Run(context.Background(), SyncProducts, SyncParams{Page: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesFetched)

	a, _ := store.GetProduct(context.Background(), "A")
	assert.Nil(t, a)
	b, _ := store.GetProduct(context.Background(), "B")
	assert.NotNil(t, b)
}

func TestSyncSingleFlight(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{{{Barcode: "A", Quantity: 1}}},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := newTestSync(store, api)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), SyncProducts, SyncParams{})
		done <- err
	}()

	<-api.started

	// Second trigger of the same kind while the first holds the slot.
	_, err := svc.Run(context.Background(), SyncProducts, SyncParams{})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// A different kind is independent.
	_, err = svc.Run(context.Background(), SyncOrders, SyncParams{})
	assert.NoError(t, err)

	close(api.release)
	require.NoError(t, <-done)

	// The slot is released; the next run proceeds.
	_, err = svc.Run(context.Background(), SyncProducts, SyncParams{})
	assert.NoError(t, err)
}

func TestSyncTransportFailureReturnsPartialResult(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{
			{{Barcode: "A", Quantity: 1}},
			{{Barcode: "B", Quantity: 2}},
		},
		productErr:    errors.New("connection reset"),
		failAfterPage: 1,
	}
	svc := newTestSync(store, api)

	result, err := svc.Run(context.Background(), SyncProducts, SyncParams{})
	require.Error(t, err)
	assert.Equal(t, 1, result.PagesFetched)

	// Page one committed before the transport died.
	a, _ := store.GetProduct(context.Background(), "A")
	assert.NotNil(t, a)
	b, _ := store.GetProduct(context.Background(), "B")
	assert.Nil(t, b)
}

func TestSyncHonorsContextAtPageBoundary(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{{{Barcode: "A", Quantity: 1}}},
	}
	svc := newTestSync(store, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Run(ctx, SyncProducts, SyncParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.PagesFetched)
}

func TestStockSyncTouchesQuantityOnly(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Title: "Widget", Quantity: 5, ListPrice: 100, SalePrice: 90,
	})).Success)

	api := &fakeAPI{
		productPages: [][]model.RemoteProduct{
			// Remote reports a new quantity and (stale) zero prices.
			{{Barcode: "A", Quantity: 2}},
		},
	}
	svc := newTestSync(store, api)

	result, err := svc.Run(context.Background(), SyncStock, SyncParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, 100.0, p.ListPrice)
	assert.Equal(t, "Widget", p.Title)
}

func TestPushUpdateWritesRemoteFirst(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Quantity: 5,
	})).Success)

	api := &fakeAPI{updateErr: errors.New("remote rejected")}
	svc := newTestSync(store, api)

	_, err := svc.PushStock(context.Background(), "A", 9)
	require.Error(t, err)

	// Remote rejected: local state is untouched.
	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 5, p.Quantity)

	// Remote accepts: local state follows.
	api.mu.Lock()
	api.updateErr = nil
	api.mu.Unlock()

	p, err = svc.PushStock(context.Background(), "A", 9)
	require.NoError(t, err)
	assert.Equal(t, 9, p.Quantity)
}

func TestPushUpdateUnknownProduct(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{}
	svc := newTestSync(store, api)

	_, err := svc.PushStock(context.Background(), "missing", 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, api.updateCalls)
}

func TestPushUpdatesBatchIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, store)
	for _, barcode := range []string{"A", "C"} {
		require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
			Barcode: barcode, Quantity: 1,
		})).Success)
	}

	api := &fakeAPI{}
	svc := newTestSync(store, api)

	outcomes := svc.PushUpdates(context.Background(), []model.StockDelta{
		{Barcode: "A", Quantity: intPtr(4)},
		{Barcode: "B", Quantity: intPtr(2)}, // unknown locally
		{Barcode: "C", Quantity: intPtr(-1)},
	})

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.False(t, outcomes[2].Success)

	a, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 4, a.Quantity)
	c, _ := store.GetProduct(context.Background(), "C")
	assert.Equal(t, 1, c.Quantity)
}

func TestUpdateOrderStatusPushPath(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.OrderRecord(model.RemoteOrder{
		OrderID: "o1", Status: model.OrderStatusNew, CustomerID: "c1", TotalPrice: floatPtr(10),
	})).Success)

	api := &fakeAPI{}
	svc := newTestSync(store, api)

	order, err := svc.UpdateOrderStatus(context.Background(), "o1", model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, order.Status)
	assert.Equal(t, "c1", order.CustomerID)
	assert.Equal(t, []string{"o1"}, api.statusCalls)

	_, err = svc.UpdateOrderStatus(context.Background(), "o1", model.OrderStatus("BOGUS"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateOrderStatus(context.Background(), "nope", model.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)

	api.mu.Lock()
	api.statusErr = errors.New("remote down")
	api.mu.Unlock()
	_, err = svc.UpdateOrderStatus(context.Background(), "o1", model.OrderStatusCompleted)
	require.Error(t, err)

	o, _ := store.GetOrder(context.Background(), "o1")
	assert.Equal(t, model.OrderStatusShipped, o.Status)
}

func TestGetOrderFallsBackToRemoteDetail(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		orderDetail: &model.RemoteOrder{
			OrderID: "o1", Status: model.OrderStatusProcessing, CustomerID: "c1", TotalPrice: floatPtr(42),
		},
	}
	svc := newTestSync(store, api)

	order, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderStatusProcessing, order.Status)

	// Now it is local; the remote is not consulted again.
	api.mu.Lock()
	api.orderErr = errors.New("remote down")
	api.mu.Unlock()

	order, err = svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "c1", order.CustomerID)
}

func TestGetOrderUnknownRemotelyIsNotFound(t *testing.T) {
	store := newFakeStore()
	// fakeAPI without orderDetail answers the detail request with a 404.
	svc := newTestSync(store, &fakeAPI{})

	_, err := svc.GetOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderSyncDefaultWindow(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		orderPages: [][]model.RemoteOrder{
			{{OrderID: "o1", Status: model.OrderStatusNew, TotalPrice: floatPtr(10)}},
		},
	}
	svc := newTestSync(store, api)

	result, err := svc.Run(context.Background(), SyncOrders, SyncParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	o, _ := store.GetOrder(context.Background(), "o1")
	require.NotNil(t, o)
}

func TestRunUnknownKind(t *testing.T) {
	svc := newTestSync(newFakeStore(), &fakeAPI{})
	_, err := svc.Run(context.Background(), SyncKind("BOGUS"), SyncParams{})
	assert.Error(t, err)
}
