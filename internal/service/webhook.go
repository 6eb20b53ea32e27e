package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/pkg/uid"
)

// Webhook event types as the marketplace sends them.
const (
	EventOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventProductStockUpdate = "PRODUCT_STOCK_UPDATED"
	EventPriceUpdated       = "PRICE_UPDATED"
)

// WebhookService authenticates inbound push notifications, classifies them
// and routes their payloads through the shared reconciler. Every
// authenticated delivery of a known type leaves an audit record.
type WebhookService struct {
	reconciler *Reconciler
	events     repository.WebhookEventRepository
	secret     []byte
	now        func() time.Time
}

// NewWebhookService creates a webhook service. secret is the shared HMAC key
// configured at the marketplace.
func NewWebhookService(rec *Reconciler, events repository.WebhookEventRepository, secret string) *WebhookService {
	return &WebhookService{
		reconciler: rec,
		events:     events,
		secret:     []byte(secret),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// VerifySignature checks the HMAC-SHA256 hex signature over the exact raw
// request body. Authentication precedes any persistence: callers must reject
// the request on error without creating an audit record.
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	if len(s.secret) == 0 || signature == "" {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// webhookEnvelope is the wire shape of every push notification.
type webhookEnvelope struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

type orderEventData struct {
	OrderID    string            `json:"orderId"`
	Status     model.OrderStatus `json:"status"`
	CustomerID string            `json:"customerId"`
	TotalPrice *float64          `json:"totalPrice"`
	Items      []model.OrderItem `json:"items"`
}

type stockEventData struct {
	Barcode  string `json:"barcode"`
	Quantity *int   `json:"quantity"`
}

type priceEventData struct {
	Barcode   string   `json:"barcode"`
	ListPrice *float64 `json:"listPrice"`
	SalePrice *float64 `json:"salePrice"`
}

// classify maps an envelope to its audit event type and the RemoteRecord to
// reconcile. ok is false for event types this deployment doesn't handle.
func classify(env webhookEnvelope) (model.WebhookEventType, model.RemoteRecord, bool, error) {
	switch env.EventType {
	case EventOrderStatusChanged:
		var data orderEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return model.WebhookEventOrder, model.RemoteRecord{}, true, fmt.Errorf("malformed order payload: %w", err)
		}
		return model.WebhookEventOrder, model.OrderRecord(model.RemoteOrder{
			OrderID:    data.OrderID,
			Status:     data.Status,
			CustomerID: data.CustomerID,
			TotalPrice: data.TotalPrice,
			Items:      data.Items,
		}), true, nil

	case EventProductStockUpdate:
		var data stockEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return model.WebhookEventInventory, model.RemoteRecord{}, true, fmt.Errorf("malformed inventory payload: %w", err)
		}
		return model.WebhookEventInventory, model.StockRecord(model.StockDelta{
			Barcode:  data.Barcode,
			Quantity: data.Quantity,
		}), true, nil

	case EventPriceUpdated:
		var data priceEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return model.WebhookEventPrice, model.RemoteRecord{}, true, fmt.Errorf("malformed price payload: %w", err)
		}
		return model.WebhookEventPrice, model.StockRecord(model.StockDelta{
			Barcode:   data.Barcode,
			ListPrice: data.ListPrice,
			SalePrice: data.SalePrice,
		}), true, nil
	}

	return "", model.RemoteRecord{}, false, nil
}

// Process handles an authenticated webhook body: classify, persist a PENDING
// audit record, reconcile, and mark the record PROCESSED or FAILED. Unknown
// event types are acknowledged without reconciliation and leave no record.
// The returned event is nil when the delivery was ignored.
func (s *WebhookService) Process(ctx context.Context, body []byte) (*model.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[WebhookService] Ignoring undecodable payload: %v", err)
		return nil, nil
	}

	eventType, rec, ok, classifyErr := classify(env)
	if !ok {
		log.Printf("[WebhookService] Ignoring unknown event type %q", env.EventType)
		return nil, nil
	}

	event := model.WebhookEvent{
		ID:        uid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(body),
		Status:    model.WebhookStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.events.CreateWebhookEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}

	if classifyErr != nil {
		return s.finish(ctx, event, model.WebhookStatusFailed, classifyErr.Error())
	}

	outcome := s.reconciler.ReconcileOne(ctx, rec)
	if !outcome.Success {
		return s.finish(ctx, event, model.WebhookStatusFailed, outcome.Error)
	}
	return s.finish(ctx, event, model.WebhookStatusProcessed, "")
}

func (s *WebhookService) finish(ctx context.Context, event model.WebhookEvent, status model.WebhookEventStatus, errDetail string) (*model.WebhookEvent, error) {
	processedAt := s.now()
	if err := s.events.FinishWebhookEvent(ctx, event.ID, status, errDetail, processedAt); err != nil {
		return nil, fmt.Errorf("failed to finish webhook event: %w", err)
	}

	event.Status = status
	event.Error = errDetail
	event.ProcessedAt = &processedAt

	if status == model.WebhookStatusFailed {
		log.Printf("[WebhookService] Event %s (%s) failed: %s", event.ID, event.EventType, errDetail)
	}
	return &event, nil
}

// Reprocess re-runs a FAILED event through the reconciler, bumping its retry
// counter. The gateway itself never retries; this is the operator path.
func (s *WebhookService) Reprocess(ctx context.Context, id string) (*model.WebhookEvent, error) {
	event, err := s.events.GetWebhookEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrNotFound
	}
	if event.Status != model.WebhookStatusFailed {
		return nil, fmt.Errorf("webhook event %s is %s: %w", id, event.Status, ErrNotRetryable)
	}

	if err := s.events.IncrementRetryCount(ctx, id); err != nil {
		return nil, err
	}
	event.RetryCount++
	event.Status = model.WebhookStatusPending

	var env webhookEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return s.finish(ctx, *event, model.WebhookStatusFailed, "malformed stored payload: "+err.Error())
	}
	_, rec, ok, classifyErr := classify(env)
	if !ok {
		return s.finish(ctx, *event, model.WebhookStatusFailed, "unknown event type "+env.EventType)
	}
	if classifyErr != nil {
		return s.finish(ctx, *event, model.WebhookStatusFailed, classifyErr.Error())
	}

	outcome := s.reconciler.ReconcileOne(ctx, rec)
	if !outcome.Success {
		return s.finish(ctx, *event, model.WebhookStatusFailed, outcome.Error)
	}
	return s.finish(ctx, *event, model.WebhookStatusProcessed, "")
}

// ListEvents exposes the audit log, optionally filtered by status.
func (s *WebhookService) ListEvents(ctx context.Context, status model.WebhookEventStatus, limit int) ([]model.WebhookEvent, error) {
	return s.events.ListWebhookEvents(ctx, status, limit)
}
