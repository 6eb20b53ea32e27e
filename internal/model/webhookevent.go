package model

import (
	"encoding/json"
	"time"
)

// WebhookEventType classifies an inbound push notification.
type WebhookEventType string

const (
	WebhookEventOrder     WebhookEventType = "ORDER"
	WebhookEventInventory WebhookEventType = "INVENTORY"
	WebhookEventPrice     WebhookEventType = "PRICE"
)

// WebhookEventStatus is the delivery outcome. Transitions are monotonic:
// PENDING moves to exactly one of PROCESSED or FAILED.
type WebhookEventStatus string

const (
	WebhookStatusPending   WebhookEventStatus = "PENDING"
	WebhookStatusProcessed WebhookEventStatus = "PROCESSED"
	WebhookStatusFailed    WebhookEventStatus = "FAILED"
)

// WebhookEvent is the audit/retry record for an authenticated inbound
// webhook delivery. Unauthenticated requests never produce one.
type WebhookEvent struct {
	ID          string             `json:"id"`
	EventType   WebhookEventType   `json:"eventType"`
	Payload     json.RawMessage    `json:"payload"`
	Status      WebhookEventStatus `json:"status"`
	Error       string             `json:"error,omitempty"`
	RetryCount  int                `json:"retryCount"`
	CreatedAt   time.Time          `json:"createdAt"`
	ProcessedAt *time.Time         `json:"processedAt,omitempty"`
}
