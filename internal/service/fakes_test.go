package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/trendyol"
)

// fakeStore is an in-memory store for service tests.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]model.Product
	orders   map[string]model.Order
	settings *model.Settings
	events   map[string]model.WebhookEvent

	productErr  error
	orderErr    error
	saveCalls   int
	upsertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]model.Product),
		orders:   make(map[string]model.Order),
		events:   make(map[string]model.WebhookEvent),
	}
}

func (f *fakeStore) UpsertProduct(ctx context.Context, p model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return f.productErr
	}
	f.upsertCalls++
	f.products[p.Barcode] = p
	return nil
}

func (f *fakeStore) GetProduct(ctx context.Context, barcode string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return nil, f.productErr
	}
	p, ok := f.products[barcode]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, barcode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, barcode)
	return nil
}

func (f *fakeStore) UpsertOrder(ctx context.Context, o model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return f.orderErr
	}
	f.orders[o.OrderID] = o
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeStore) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (f *fakeStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, nil
	}
	s := *f.settings
	return &s, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, s model.Settings) (*model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	s.ID = 1
	s.UpdatedAt = time.Now().UTC()
	f.settings = &s
	saved := s
	return &saved, nil
}

func (f *fakeStore) CreateWebhookEvent(ctx context.Context, e model.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
	return nil
}

func (f *fakeStore) FinishWebhookEvent(ctx context.Context, id string, status model.WebhookEventStatus, errDetail string, processedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil
	}
	e.Status = status
	e.Error = errDetail
	e.ProcessedAt = &processedAt
	f.events[id] = e
	return nil
}

func (f *fakeStore) GetWebhookEvent(ctx context.Context, id string) (*model.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) ListWebhookEvents(ctx context.Context, status model.WebhookEventStatus, limit int) ([]model.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.WebhookEvent, 0, len(f.events))
	for _, e := range f.events {
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) IncrementRetryCount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil
	}
	e.RetryCount++
	e.Status = model.WebhookStatusPending
	f.events[id] = e
	return nil
}

// fakeAPI is a scriptable marketplace client for service tests.
type fakeAPI struct {
	mu sync.Mutex

	productPages [][]model.RemoteProduct
	orderPages   [][]model.RemoteOrder
	orderDetail  *model.RemoteOrder

	productErr error
	orderErr   error
	updateErr  error
	statusErr  error

	// failAfterPage makes GetProducts fail once that many pages were served.
	failAfterPage int

	productCalls int
	updateCalls  []model.StockDelta
	statusCalls  []string

	// started/release gate the first GetProducts call for concurrency tests.
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) GetProducts(ctx context.Context, page, size int) (*trendyol.ProductPage, error) {
	if f.started != nil && page == 0 {
		close(f.started)
		f.started = nil
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil && (f.failAfterPage == 0 || f.productCalls >= f.failAfterPage) {
		return nil, f.productErr
	}
	f.productCalls++

	var content []model.RemoteProduct
	if page < len(f.productPages) {
		content = f.productPages[page]
	}
	return &trendyol.ProductPage{
		Content:    content,
		TotalPages: len(f.productPages),
		Page:       page,
		Size:       size,
	}, nil
}

func (f *fakeAPI) GetOrders(ctx context.Context, startDate, endDate string, page, size int) (*trendyol.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}

	var content []model.RemoteOrder
	if page < len(f.orderPages) {
		content = f.orderPages[page]
	}
	return &trendyol.OrderPage{
		Content:    content,
		TotalPages: len(f.orderPages),
		Page:       page,
		Size:       size,
	}, nil
}

func (f *fakeAPI) GetOrderDetail(ctx context.Context, orderID string) (*model.RemoteOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.orderDetail == nil {
		return nil, &trendyol.APIError{StatusCode: 404, Body: "order not found"}
	}
	o := *f.orderDetail
	return &o, nil
}

func (f *fakeAPI) UpdatePriceAndInventory(ctx context.Context, items []model.StockDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls = append(f.updateCalls, items...)
	return nil
}

func (f *fakeAPI) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, orderID)
	return nil
}

func (f *fakeAPI) CheckConnection(ctx context.Context, creds trendyol.Credentials) error {
	return nil
}

var _ trendyol.API = (*fakeAPI)(nil)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
