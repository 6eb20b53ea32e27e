package handler

import (
	"encoding/json"
	"net/http"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/pkg/apierror"
	"trendyol-sync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product catalog HTTP requests.
type ProductHandler struct {
	products   repository.ProductRepository
	reconciler *service.Reconciler
	sync       *service.SyncService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products repository.ProductRepository, rec *service.Reconciler, syncSvc *service.SyncService) *ProductHandler {
	return &ProductHandler{
		products:   products,
		reconciler: rec,
		sync:       syncSvc,
	}
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	response.OK(w, products)
}

// Get handles GET /api/v1/products/{barcode}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
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
	response.OK(w, product)
}

// Create handles POST /api/v1/products. Locally created products go through
// the same reconciliation path as synced ones so the derived timestamp
// invariants hold.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rp model.RemoteProduct
	if err := json.NewDecoder(r.Body).Decode(&rp); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	existing, err := h.products.GetProduct(r.Context(), rp.Barcode)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if existing != nil {
		response.Error(w, apierror.Conflict("product already exists"))
		return
	}

	outcome := h.reconciler.ReconcileOne(r.Context(), model.ProductRecord(rp))
	if !outcome.Success {
		response.Error(w, apierror.ValidationError(outcome.Error))
		return
	}
	response.Created(w, outcome.Record)
}

// Update handles PUT /api/v1/products/{barcode}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	var rp model.RemoteProduct
	if err := json.NewDecoder(r.Body).Decode(&rp); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	rp.Barcode = barcode

	existing, err := h.products.GetProduct(r.Context(), barcode)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if existing == nil {
		response.Error(w, apierror.NotFound("product not found"))
		return
	}

	outcome := h.reconciler.ReconcileOne(r.Context(), model.ProductRecord(rp))
	if !outcome.Success {
		response.Error(w, apierror.ValidationError(outcome.Error))
		return
	}
	response.OK(w, outcome.Record)
}

// Delete handles DELETE /api/v1/products/{barcode}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	if barcode == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}
	if err := h.products.DeleteProduct(r.Context(), barcode); err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.Message(w, "product deleted")
}

// syncRequest is the optional body of an on-demand sync trigger.
type syncRequest struct {
	Page      *int   `json:"page,omitempty"`
	Size      int    `json:"size,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// syncAck is the acknowledgment for a completed sync run.
type syncAck struct {
	Message string              `json:"message"`
	Result  *service.SyncResult `json:"result"`
}

// runSync triggers a sync pass and writes the shared acknowledgment shape.
func runSync(w http.ResponseWriter, r *http.Request, syncSvc *service.SyncService, kind service.SyncKind, message string) {
	var req syncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, apierror.BadRequest("invalid JSON"))
			return
		}
	}

	result, err := syncSvc.Run(r.Context(), kind, service.SyncParams{
		Page:      req.Page,
		Size:      req.Size,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if result.AllFailed() {
		response.Error(w, apierror.InternalError("every record in the sync batch failed"))
		return
	}
	response.OK(w, syncAck{Message: message, Result: result})
}

// Sync handles POST /api/v1/products/sync
func (h *ProductHandler) Sync(w http.ResponseWriter, r *http.Request) {
	runSync(w, r, h.sync, service.SyncProducts, "products synced")
}
