package model

import "time"

// Settings is the process-wide singleton integration configuration.
// Intervals are in minutes, matching the marketplace panel's units.
type Settings struct {
	ID                  int64     `json:"id"`
	APIKey              string    `json:"apiKey"`
	APISecret           string    `json:"apiSecret"`
	SupplierID          string    `json:"supplierId"`
	WebhookURL          string    `json:"webhookUrl"`
	AutoSync            bool      `json:"autoSync"`
	SyncInterval        int       `json:"syncInterval"`
	MinStockAlert       int       `json:"minStockAlert"`
	StockUpdateInterval int       `json:"stockUpdateInterval"`
	OrderCheckInterval  int       `json:"orderCheckInterval"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DefaultSettings returns the record created lazily on first read when no
// settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		APIKey:              "",
		APISecret:           "",
		SupplierID:          "",
		WebhookURL:          "",
		AutoSync:            false,
		SyncInterval:        30,
		MinStockAlert:       10,
		StockUpdateInterval: 5,
		OrderCheckInterval:  5,
	}
}

// HasCredentials reports whether the marketplace API can be called at all.
func (s Settings) HasCredentials() bool {
	return s.APIKey != "" && s.APISecret != "" && s.SupplierID != ""
}
