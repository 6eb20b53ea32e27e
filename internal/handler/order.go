package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/pkg/apierror"
	"trendyol-sync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

const defaultOrderListLimit = 50

// OrderHandler handles order HTTP requests.
type OrderHandler struct {
	orders repository.OrderRepository
	sync   *service.SyncService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders repository.OrderRepository, syncSvc *service.SyncService) *OrderHandler {
	return &OrderHandler{orders: orders, sync: syncSvc}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultOrderListLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.Error(w, apierror.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.Error(w, apierror.BadRequest("offset must be a non-negative integer"))
			return
		}
		offset = n
	}

	orders, err := h.orders.ListOrders(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	response.OK(w, orders)
}

// Get handles GET /api/v1/orders/{orderId}. Unknown orders are fetched from
// the marketplace and reconciled before answering.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		response.Error(w, apierror.BadRequest("orderId is required"))
		return
	}

	order, err := h.sync.GetOrder(r.Context(), orderID)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if order == nil {
		response.Error(w, apierror.NotFound("order not found"))
		return
	}
	response.OK(w, order)
}

type orderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateStatus handles PUT /api/v1/orders/{orderId}/status. The change is
// pushed to the marketplace first and committed locally only after the remote
// accepted it.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		response.Error(w, apierror.BadRequest("orderId is required"))
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	order, err := h.sync.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.OK(w, order)
}

// Sync handles POST /api/v1/orders/sync
func (h *OrderHandler) Sync(w http.ResponseWriter, r *http.Request) {
	runSync(w, r, h.sync, service.SyncOrders, "orders synced")
}
