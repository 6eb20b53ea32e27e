package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"trendyol-sync-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "webhook-test-secret"

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestWebhook(store *fakeStore) *WebhookService {
	rec := NewReconciler(store, store)
	return NewWebhookService(rec, store, testSecret)
}

func TestVerifySignature(t *testing.T) {
	svc := newTestWebhook(newFakeStore())
	body := []byte(`{"eventType":"ORDER_STATUS_CHANGED","data":{}}`)

	assert.NoError(t, svc.VerifySignature(body, sign(body, testSecret)))
	assert.ErrorIs(t, svc.VerifySignature(body, sign(body, "wrong-secret")), ErrInvalidSignature)
	assert.ErrorIs(t, svc.VerifySignature(body, ""), ErrInvalidSignature)

	// A single flipped byte in the body invalidates the signature.
	tampered := append([]byte(nil), body...)
	tampered[0] = '['
	assert.ErrorIs(t, svc.VerifySignature(tampered, sign(body, testSecret)), ErrInvalidSignature)
}

func TestVerifySignatureWithoutConfiguredSecret(t *testing.T) {
	store := newFakeStore()
	rec := NewReconciler(store, store)
	svc := NewWebhookService(rec, store, "")

	body := []byte(`{}`)
	assert.ErrorIs(t, svc.VerifySignature(body, sign(body, "")), ErrInvalidSignature)
}

func TestProcessOrderEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)

	body := []byte(`{"eventType":"ORDER_STATUS_CHANGED","data":{"orderId":"o1","status":"SHIPPED","customerId":"c1","totalPrice":99.5}}`)
	event, err := svc.Process(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)
	assert.Equal(t, model.WebhookEventOrder, event.EventType)
	require.NotNil(t, event.ProcessedAt)

	o, _ := store.GetOrder(context.Background(), "o1")
	require.NotNil(t, o)
	assert.Equal(t, model.OrderStatusShipped, o.Status)
	assert.Equal(t, "c1", o.CustomerID)
}

func TestProcessStockEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Quantity: 5, ListPrice: 100, SalePrice: 90,
	})).Success)

	body := []byte(`{"eventType":"PRODUCT_STOCK_UPDATED","data":{"barcode":"A","quantity":2}}`)
	event, err := svc.Process(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, 100.0, p.ListPrice)
}

func TestProcessPriceEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Quantity: 5, ListPrice: 100, SalePrice: 90,
	})).Success)

	body := []byte(`{"eventType":"PRICE_UPDATED","data":{"barcode":"A","salePrice":79.9}}`)
	event, err := svc.Process(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 79.9, p.SalePrice)
	assert.Equal(t, 5, p.Quantity)
}

func TestProcessUnknownEventTypeLeavesNoRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)

	event, err := svc.Process(context.Background(), []byte(`{"eventType":"SOMETHING_ELSE","data":{}}`))
	require.NoError(t, err)
	assert.Nil(t, event)

	events, _ := store.ListWebhookEvents(context.Background(), "", 10)
	assert.Empty(t, events)
}

func TestProcessFailedEventKeepsPayload(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)

	// Stock update for a product that does not exist locally.
	body := []byte(`{"eventType":"PRODUCT_STOCK_UPDATED","data":{"barcode":"ghost","quantity":1}}`)
	event, err := svc.Process(context.Background(), body)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, model.WebhookStatusFailed, event.Status)
	assert.Equal(t, ErrNotFound.Error(), event.Error)
	assert.Equal(t, 0, event.RetryCount)
	assert.JSONEq(t, string(body), string(event.Payload))
}

func TestReprocessFailedEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestWebhook(store)

	body := []byte(`{"eventType":"PRODUCT_STOCK_UPDATED","data":{"barcode":"A","quantity":7}}`)
	failed, err := svc.Process(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, model.WebhookStatusFailed, failed.Status)

	// Only FAILED events are retryable.
	okBody := []byte(`{"eventType":"ORDER_STATUS_CHANGED","data":{"orderId":"o1","status":"NEW"}}`)
	processed, err := svc.Process(context.Background(), okBody)
	require.NoError(t, err)
	_, err = svc.Reprocess(context.Background(), processed.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)

	// The product appears, the retry succeeds.
	rec := NewReconciler(store, store)
	require.True(t, rec.ReconcileOne(context.Background(), model.ProductRecord(model.RemoteProduct{
		Barcode: "A", Quantity: 1,
	})).Success)

	event, err := svc.Reprocess(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WebhookStatusProcessed, event.Status)
	assert.Equal(t, 1, event.RetryCount)

	p, _ := store.GetProduct(context.Background(), "A")
	assert.Equal(t, 7, p.Quantity)
}

func TestReprocessUnknownEvent(t *testing.T) {
	svc := newTestWebhook(newFakeStore())
	_, err := svc.Reprocess(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
