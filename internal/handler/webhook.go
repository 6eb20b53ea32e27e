package handler

import (
	"io"
	"net/http"
	"strconv"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/pkg/apierror"
	"trendyol-sync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader carries the HMAC-SHA256 hex signature of the raw body.
const SignatureHeader = "X-Trendyol-Signature"

const maxWebhookBody = 1 << 20

// WebhookHandler is the inbound gateway for marketplace push notifications.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive handles POST /api/v1/webhooks/{orders,inventory,prices}. The
// signature is verified over the exact raw body before anything is persisted.
// Authenticated deliveries are always acknowledged with 200 so the
// marketplace doesn't retry; processing failures live in the audit log.
// Oversized bodies are rejected outright rather than truncated, since a
// truncated body could never verify.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxWebhookBody {
		response.Error(w, apierror.PayloadTooLarge(""))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		response.Error(w, apierror.BadRequest("unreadable body"))
		return
	}
	if len(body) > maxWebhookBody {
		response.Error(w, apierror.PayloadTooLarge(""))
		return
	}

	if err := h.webhooks.VerifySignature(body, r.Header.Get(SignatureHeader)); err != nil {
		response.Error(w, apierror.Unauthorized("Invalid signature"))
		return
	}

	if _, err := h.webhooks.Process(r.Context(), body); err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.Message(w, "Webhook processed")
}

// Events handles GET /api/v1/webhooks/events. ?status= filters by
// PENDING/PROCESSED/FAILED, ?limit= bounds the page.
func (h *WebhookHandler) Events(w http.ResponseWriter, r *http.Request) {
	status := model.WebhookEventStatus(r.URL.Query().Get("status"))
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.Error(w, apierror.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	events, err := h.webhooks.ListEvents(r.Context(), status, limit)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	if events == nil {
		events = []model.WebhookEvent{}
	}
	response.OK(w, events)
}

// Retry handles POST /api/v1/webhooks/events/{id}/retry. Only FAILED events
// can be reprocessed.
func (h *WebhookHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	event, err := h.webhooks.Reprocess(r.Context(), id)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.OK(w, event)
}
