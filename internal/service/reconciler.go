package service

import (
	"context"
	"time"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
)

// Outcome is the per-record result of a reconciliation.
type Outcome struct {
	Key     string      `json:"key"`
	Success bool        `json:"success"`
	Record  interface{} `json:"record,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Reconciler merges authoritative remote records into the local store.
// It is stateless between calls and safe for concurrent use; races on the
// same key resolve last-writer-wins through the store's atomic upserts.
//
// Polling, on-demand syncs and webhooks all funnel through this one
// implementation so merge semantics never diverge.
type Reconciler struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	now      func() time.Time
}

// NewReconciler creates a reconciler over the given repositories.
func NewReconciler(products repository.ProductRepository, orders repository.OrderRepository) *Reconciler {
	return &Reconciler{
		products: products,
		orders:   orders,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ReconcileBatch merges a batch record by record. One record's failure never
// aborts its siblings; the returned outcomes match the input order.
func (r *Reconciler) ReconcileBatch(ctx context.Context, records []model.RemoteRecord) []Outcome {
	outcomes := make([]Outcome, 0, len(records))
	for _, rec := range records {
		outcomes = append(outcomes, r.ReconcileOne(ctx, rec))
	}
	return outcomes
}

// ReconcileOne merges a single remote record into the local store.
func (r *Reconciler) ReconcileOne(ctx context.Context, rec model.RemoteRecord) Outcome {
	key := rec.Key()

	if err := rec.Validate(); err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}

	switch rec.Kind {
	case model.KindProduct:
		return r.reconcileProduct(ctx, key, *rec.Product)
	case model.KindOrder:
		return r.reconcileOrder(ctx, key, *rec.Order)
	case model.KindStock:
		return r.reconcileStock(ctx, key, *rec.Stock)
	default:
		return Outcome{Key: key, Error: model.ErrEmptyRecord.Error()}
	}
}

func (r *Reconciler) reconcileProduct(ctx context.Context, key string, rp model.RemoteProduct) Outcome {
	existing, err := r.products.GetProduct(ctx, key)
	if err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}

	merged := mergeProduct(existing, rp, r.now())
	if err := r.products.UpsertProduct(ctx, merged); err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}
	return Outcome{Key: key, Success: true, Record: merged}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, key string, ro model.RemoteOrder) Outcome {
	existing, err := r.orders.GetOrder(ctx, key)
	if err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}

	merged := mergeOrder(existing, ro, r.now())
	if err := r.orders.UpsertOrder(ctx, merged); err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}
	return Outcome{Key: key, Success: true, Record: merged}
}

func (r *Reconciler) reconcileStock(ctx context.Context, key string, delta model.StockDelta) Outcome {
	existing, err := r.products.GetProduct(ctx, key)
	if err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}
	if existing == nil {
		// Partial updates only apply to known products; a full product sync
		// is the path that creates records.
		return Outcome{Key: key, Error: ErrNotFound.Error()}
	}

	merged := applyStockDelta(*existing, delta, r.now())
	if err := r.products.UpsertProduct(ctx, merged); err != nil {
		return Outcome{Key: key, Error: err.Error()}
	}
	return Outcome{Key: key, Success: true, Record: merged}
}

// mergeProduct overwrites every remote-owned field from the remote record.
// Local-only fields (record id, created_at) come from the existing record;
// derived timestamps are refreshed only when the underlying value changed.
func mergeProduct(existing *model.Product, rp model.RemoteProduct, now time.Time) model.Product {
	merged := model.Product{
		Barcode:           rp.Barcode,
		Title:             rp.Title,
		ProductMainID:     rp.ProductMainID,
		BrandID:           rp.BrandID,
		CategoryID:        rp.CategoryID,
		Quantity:          rp.Quantity,
		StockCode:         rp.StockCode,
		DimensionalWeight: rp.DimensionalWeight,
		Description:       rp.Description,
		CurrencyType:      rp.CurrencyType,
		ListPrice:         rp.ListPrice,
		SalePrice:         rp.SalePrice,
		VatRate:           rp.VatRate,
		CargoCompanyID:    rp.CargoCompanyID,
		Images:            rp.Images,
	}

	if merged.CurrencyType == "" {
		merged.CurrencyType = model.DefaultCurrencyType
	}
	if merged.VatRate == 0 {
		merged.VatRate = model.DefaultVatRate
	}
	if merged.CargoCompanyID == 0 {
		merged.CargoCompanyID = model.DefaultCargoCompanyID
	}

	if existing == nil {
		merged.CreatedAt = now
		merged.LastStockUpdate = now
		merged.LastPriceUpdate = now
		return merged
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.LastStockUpdate = existing.LastStockUpdate
	merged.LastPriceUpdate = existing.LastPriceUpdate
	if merged.Quantity != existing.Quantity {
		merged.LastStockUpdate = now
	}
	if merged.ListPrice != existing.ListPrice || merged.SalePrice != existing.SalePrice {
		merged.LastPriceUpdate = now
	}
	return merged
}

// mergeOrder overwrites remote-owned order fields. Fields the remote did not
// provide (empty customer, nil items, nil total) are kept from the local
// record so partial webhook payloads don't erase data. An explicit zero total
// is applied like any other value.
// A terminal local status is never regressed by a lower-ranked remote status.
func mergeOrder(existing *model.Order, ro model.RemoteOrder, now time.Time) model.Order {
	merged := model.Order{
		OrderID:    ro.OrderID,
		Status:     ro.Status,
		CustomerID: ro.CustomerID,
		Items:      ro.Items,
		UpdatedAt:  now,
	}

	if ro.TotalPrice != nil {
		merged.TotalPrice = *ro.TotalPrice
	}
	if merged.Status == "" {
		merged.Status = model.OrderStatusNew
	}

	if existing == nil {
		merged.CreatedAt = now
		return merged
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt

	if existing.Status.Terminal() && merged.Status.Rank() < existing.Status.Rank() {
		merged.Status = existing.Status
	}
	if merged.CustomerID == "" {
		merged.CustomerID = existing.CustomerID
	}
	if merged.Items == nil {
		merged.Items = existing.Items
	}
	if ro.TotalPrice == nil {
		merged.TotalPrice = existing.TotalPrice
	}
	return merged
}

// applyStockDelta applies the provided fields only, refreshing the derived
// timestamps when a value actually changed.
func applyStockDelta(existing model.Product, delta model.StockDelta, now time.Time) model.Product {
	merged := existing

	if delta.Quantity != nil && *delta.Quantity != merged.Quantity {
		merged.Quantity = *delta.Quantity
		merged.LastStockUpdate = now
	}

	priceChanged := false
	if delta.ListPrice != nil && *delta.ListPrice != merged.ListPrice {
		merged.ListPrice = *delta.ListPrice
		priceChanged = true
	}
	if delta.SalePrice != nil && *delta.SalePrice != merged.SalePrice {
		merged.SalePrice = *delta.SalePrice
		priceChanged = true
	}
	if priceChanged {
		merged.LastPriceUpdate = now
	}
	return merged
}
