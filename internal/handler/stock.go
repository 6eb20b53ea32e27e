package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/pkg/apierror"
	"trendyol-sync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// StockHandler handles the stock/price view over the product catalog and the
// locally originated push paths.
type StockHandler struct {
	products repository.ProductRepository
	sync     *service.SyncService
	settings *service.SettingsService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(products repository.ProductRepository, syncSvc *service.SyncService, settings *service.SettingsService) *StockHandler {
	return &StockHandler{products: products, sync: syncSvc, settings: settings}
}

// stockItem is the stock view of a product.
type stockItem struct {
	Barcode         string    `json:"barcode"`
	Title           string    `json:"title"`
	Quantity        int       `json:"quantity"`
	ListPrice       float64   `json:"listPrice"`
	SalePrice       float64   `json:"salePrice"`
	LowStock        bool      `json:"lowStock"`
	LastStockUpdate time.Time `json:"lastStockUpdate"`
	LastPriceUpdate time.Time `json:"lastPriceUpdate"`
}

func toStockItem(p model.Product, minStockAlert int) stockItem {
	return stockItem{
		Barcode:         p.Barcode,
		Title:           p.Title,
		Quantity:        p.Quantity,
		ListPrice:       p.ListPrice,
		SalePrice:       p.SalePrice,
		LowStock:        p.Quantity <= minStockAlert,
		LastStockUpdate: p.LastStockUpdate,
		LastPriceUpdate: p.LastPriceUpdate,
	}
}

// List handles GET /api/v1/stock. ?lowStock=true narrows the view to
// products at or below the configured alert threshold.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Current(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	lowOnly := r.URL.Query().Get("lowStock") == "true"
	items := make([]stockItem, 0, len(products))
	for _, p := range products {
		item := toStockItem(p, st.MinStockAlert)
		if lowOnly && !item.LowStock {
			continue
		}
		items = append(items, item)
	}
	response.OK(w, items)
}

// Get handles GET /api/v1/stock/{barcode}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	st, err := h.settings.Current(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	product, err := h.products.GetProduct(r.Context(), barcode)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if product == nil {
		response.Error(w, apierror.NotFound("product not found"))
		return
	}
	response.OK(w, toStockItem(*product, st.MinStockAlert))
}

type stockUpdateRequest struct {
	Quantity  *int     `json:"quantity"`
	ListPrice *float64 `json:"listPrice"`
	SalePrice *float64 `json:"salePrice"`
}

// Update handles PUT /api/v1/stock/{barcode}. The change is pushed to the
// marketplace first; local state is only written after the remote accepted it.
func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	var req stockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	product, err := h.sync.PushUpdate(r.Context(), model.StockDelta{
		Barcode:   barcode,
		Quantity:  req.Quantity,
		ListPrice: req.ListPrice,
		SalePrice: req.SalePrice,
	})
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.OK(w, product)
}

type batchUpdateRequest struct {
	Items []model.StockDelta `json:"items"`
}

// BatchUpdate handles PUT /api/v1/stock/batch. Per-item failures don't abort
// the batch; the response lists the outcome of every item in input order.
func (h *StockHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if len(req.Items) == 0 {
		response.Error(w, apierror.BadRequest("items is required"))
		return
	}

	outcomes := h.sync.PushUpdates(r.Context(), req.Items)
	response.OK(w, outcomes)
}

// Sync handles POST /api/v1/stock/sync
func (h *StockHandler) Sync(w http.ResponseWriter, r *http.Request) {
	runSync(w, r, h.sync, service.SyncStock, "stock synced")
}
