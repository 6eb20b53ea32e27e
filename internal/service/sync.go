package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/trendyol"
)

// SyncKind names a full sync pass.
type SyncKind string

const (
	SyncProducts SyncKind = "PRODUCTS"
	SyncOrders   SyncKind = "ORDERS"
	SyncStock    SyncKind = "STOCK"
)

const defaultPageSize = 50

// defaultOrderWindow bounds an order sync when the caller gives no range.
const defaultOrderWindow = 24 * time.Hour

// SyncParams narrows a sync run. Page requests a single explicit page;
// StartDate/EndDate are ISO-8601 UTC strings for order syncs.
type SyncParams struct {
	StartDate string
	EndDate   string
	Page      *int
	Size      int
}

// SyncResult summarizes one sync run. Record-level failures are non-fatal
// and listed in Failures; a transport failure aborts the run and is returned
// as an error alongside the partial result.
type SyncResult struct {
	Kind              SyncKind  `json:"kind"`
	PagesFetched      int       `json:"pagesFetched"`
	RecordsReconciled int       `json:"recordsReconciled"`
	Succeeded         int       `json:"succeeded"`
	Failures          []Outcome `json:"failures,omitempty"`
}

// AllFailed reports whether the run processed records and none succeeded.
func (r *SyncResult) AllFailed() bool {
	return r.RecordsReconciled > 0 && r.Succeeded == 0
}

func (r *SyncResult) absorb(outcomes []Outcome) {
	for _, o := range outcomes {
		r.RecordsReconciled++
		if o.Success {
			r.Succeeded++
		} else {
			r.Failures = append(r.Failures, o)
		}
	}
}

// SyncService drives paginated fetch-then-reconcile passes against the
// marketplace and the locally originated push paths. At most one run per
// kind is in flight at any time; concurrent triggers for the same kind get
// ErrSyncInProgress immediately.
type SyncService struct {
	api        trendyol.API
	reconciler *Reconciler
	products   repository.ProductRepository
	orders     repository.OrderRepository

	inflight map[SyncKind]*atomic.Bool
}

// NewSyncService creates a sync service.
func NewSyncService(api trendyol.API, rec *Reconciler, products repository.ProductRepository, orders repository.OrderRepository) *SyncService {
	return &SyncService{
		api:        api,
		reconciler: rec,
		products:   products,
		orders:     orders,
		inflight: map[SyncKind]*atomic.Bool{
			SyncProducts: {},
			SyncOrders:   {},
			SyncStock:    {},
		},
	}
}

// Run executes one sync pass of the given kind. Scheduled and on-demand
// triggers both enter here, inheriting the single-flight guarantee.
func (s *SyncService) Run(ctx context.Context, kind SyncKind, params SyncParams) (*SyncResult, error) {
	marker, ok := s.inflight[kind]
	if !ok {
		return nil, fmt.Errorf("unknown sync kind %q", kind)
	}
	if !marker.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer marker.Store(false)

	start := time.Now()
	result, err := s.run(ctx, kind, params)
	if err != nil {
		log.Printf("[SyncService] %s sync aborted after %d page(s) in %v: %v",
			kind, result.PagesFetched, time.Since(start), err)
		return result, err
	}
	log.Printf("[SyncService] %s sync done: pages=%d records=%d failed=%d in %v",
		kind, result.PagesFetched, result.RecordsReconciled, len(result.Failures), time.Since(start))
	return result, nil
}

func (s *SyncService) run(ctx context.Context, kind SyncKind, params SyncParams) (*SyncResult, error) {
	result := &SyncResult{Kind: kind}

	size := params.Size
	if size <= 0 {
		size = defaultPageSize
	}
	page := 0
	singlePage := false
	if params.Page != nil {
		page = *params.Page
		singlePage = true
	}

	startDate, endDate := params.StartDate, params.EndDate
	if kind == SyncOrders && startDate == "" && endDate == "" {
		end := time.Now().UTC()
		startDate = end.Add(-defaultOrderWindow).Format(time.RFC3339)
		endDate = end.Format(time.RFC3339)
	}

	for {
		// Deadlines are honored at page boundaries; records already written
		// stay committed.
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sync abandoned: %w", err)
		}

		records, totalPages, err := s.fetchPage(ctx, kind, startDate, endDate, page, size)
		if err != nil {
			return result, err
		}

		result.absorb(s.reconciler.ReconcileBatch(ctx, records))
		result.PagesFetched++

		page++
		if singlePage || page >= totalPages {
			return result, nil
		}
	}
}

func (s *SyncService) fetchPage(ctx context.Context, kind SyncKind, startDate, endDate string, page, size int) ([]model.RemoteRecord, int, error) {
	switch kind {
	case SyncProducts, SyncStock:
		pg, err := s.api.GetProducts(ctx, page, size)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch product page %d: %w", page, err)
		}
		records := make([]model.RemoteRecord, 0, len(pg.Content))
		for _, rp := range pg.Content {
			if kind == SyncStock {
				// Stock passes touch quantity only, leaving prices and
				// catalog fields as the last full sync wrote them.
				qty := rp.Quantity
				records = append(records, model.StockRecord(model.StockDelta{
					Barcode:  rp.Barcode,
					Quantity: &qty,
				}))
				continue
			}
			records = append(records, model.ProductRecord(rp))
		}
		return records, pg.TotalPages, nil

	case SyncOrders:
		pg, err := s.api.GetOrders(ctx, startDate, endDate, page, size)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch order page %d: %w", page, err)
		}
		records := make([]model.RemoteRecord, 0, len(pg.Content))
		for _, ro := range pg.Content {
			records = append(records, model.OrderRecord(ro))
		}
		return records, pg.TotalPages, nil

	default:
		return nil, 0, fmt.Errorf("unknown sync kind %q", kind)
	}
}

// GetOrder returns the local order, fetching and reconciling the remote
// detail when the order is not known locally yet.
func (s *SyncService) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		return order, nil
	}

	remote, err := s.api.GetOrderDetail(ctx, orderID)
	if err != nil {
		var apiErr *trendyol.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order detail: %w", err)
	}

	outcome := s.reconciler.ReconcileOne(ctx, model.OrderRecord(*remote))
	if !outcome.Success {
		return nil, fmt.Errorf("failed to reconcile order %s: %s", orderID, outcome.Error)
	}
	return s.orders.GetOrder(ctx, orderID)
}

// PushUpdates propagates locally originated stock/price changes. Per-item
// failures don't abort the batch.
func (s *SyncService) PushUpdates(ctx context.Context, items []model.StockDelta) []Outcome {
	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		p, err := s.PushUpdate(ctx, item)
		if err != nil {
			outcomes = append(outcomes, Outcome{Key: item.Barcode, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, Outcome{Key: item.Barcode, Success: true, Record: p})
	}
	return outcomes
}

// PushStock propagates a single locally originated quantity change and
// returns the committed product.
func (s *SyncService) PushStock(ctx context.Context, barcode string, quantity int) (*model.Product, error) {
	return s.PushUpdate(ctx, model.StockDelta{Barcode: barcode, Quantity: &quantity})
}

// PushUpdate is the push path: the change is written to the marketplace first
// and committed locally only after the remote acknowledged it, so local
// state never claims a change the marketplace rejected.
func (s *SyncService) PushUpdate(ctx context.Context, item model.StockDelta) (*model.Product, error) {
	rec := model.StockRecord(item)
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.products.GetProduct(ctx, item.Barcode)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if err := s.api.UpdatePriceAndInventory(ctx, []model.StockDelta{item}); err != nil {
		return nil, fmt.Errorf("failed to update marketplace: %w", err)
	}

	outcome := s.reconciler.ReconcileOne(ctx, rec)
	if !outcome.Success {
		return nil, fmt.Errorf("failed to commit %s locally: %s", item.Barcode, outcome.Error)
	}
	p, ok := outcome.Record.(model.Product)
	if !ok {
		return s.products.GetProduct(ctx, item.Barcode)
	}
	return &p, nil
}

// UpdateOrderStatus propagates a locally originated status change, remote
// first, then reconciles the confirmed value locally.
func (s *SyncService) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if status.Rank() < 0 {
		return nil, ErrInvalidStatus
	}

	existing, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if err := s.api.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status remotely: %w", err)
	}

	outcome := s.reconciler.ReconcileOne(ctx, model.OrderRecord(model.RemoteOrder{
		OrderID: orderID,
		Status:  status,
	}))
	if !outcome.Success {
		return nil, fmt.Errorf("failed to reconcile order %s: %s", orderID, outcome.Error)
	}
	return s.orders.GetOrder(ctx, orderID)
}
