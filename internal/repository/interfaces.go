package repository

import (
	"context"
	"time"

	"trendyol-sync-api/internal/model"
)

// ProductRepository defines product data access methods. Upserts are atomic
// single statements; the caller supplies the fully merged record.
type ProductRepository interface {
	// UpsertProduct inserts or overwrites the remote-owned fields of a
	// product addressed by barcode. Local-only columns are preserved.
	UpsertProduct(ctx context.Context, p model.Product) error

	// GetProduct returns the product with the given barcode, or nil if it
	// does not exist.
	GetProduct(ctx context.Context, barcode string) (*model.Product, error)

	// ListProducts returns all products ordered by barcode.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// DeleteProduct removes a product by barcode.
	DeleteProduct(ctx context.Context, barcode string) error
}

// OrderRepository defines order data access methods.
type OrderRepository interface {
	// UpsertOrder inserts or overwrites the remote-owned fields of an order
	// addressed by its marketplace order id.
	UpsertOrder(ctx context.Context, o model.Order) error

	// GetOrder returns the order with the given marketplace id, or nil.
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)

	// ListOrders returns orders newest-first.
	ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error)
}

// SettingsRepository persists the singleton integration settings row.
type SettingsRepository interface {
	// GetSettings returns the singleton settings record, or nil if none
	// has been created yet.
	GetSettings(ctx context.Context) (*model.Settings, error)

	// SaveSettings inserts or replaces the singleton settings record.
	SaveSettings(ctx context.Context, s model.Settings) (*model.Settings, error)
}

// WebhookEventRepository persists the webhook audit/retry log.
type WebhookEventRepository interface {
	// CreateWebhookEvent stores a new PENDING event.
	CreateWebhookEvent(ctx context.Context, e model.WebhookEvent) error

	// FinishWebhookEvent records the terminal status of an event together
	// with its processing time and optional error detail.
	FinishWebhookEvent(ctx context.Context, id string, status model.WebhookEventStatus, errDetail string, processedAt time.Time) error

	// GetWebhookEvent returns an event by id, or nil.
	GetWebhookEvent(ctx context.Context, id string) (*model.WebhookEvent, error)

	// ListWebhookEvents returns events newest-first, optionally filtered
	// by status ("" means all).
	ListWebhookEvents(ctx context.Context, status model.WebhookEventStatus, limit int) ([]model.WebhookEvent, error)

	// IncrementRetryCount bumps the retry counter of a FAILED event and
	// moves it back to PENDING for reprocessing.
	IncrementRetryCount(ctx context.Context, id string) error
}

// Store bundles all entity collections behind one connection.
type Store interface {
	ProductRepository
	OrderRepository
	SettingsRepository
	WebhookEventRepository

	// GetStats returns statistics about the store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
