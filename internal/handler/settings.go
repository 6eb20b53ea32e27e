package handler

import (
	"encoding/json"
	"net/http"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/internal/trendyol"
	"trendyol-sync-api/pkg/apierror"
	"trendyol-sync-api/pkg/response"
)

// SettingsHandler handles integration settings HTTP requests.
type SettingsHandler struct {
	settings *service.SettingsService
	api      trendyol.API
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *service.SettingsService, api trendyol.API) *SettingsHandler {
	return &SettingsHandler{settings: settings, api: api}
}

// settingsView hides the API secret from responses.
type settingsView struct {
	model.Settings
	APISecret string `json:"apiSecret"`
}

func redact(s model.Settings) settingsView {
	v := settingsView{Settings: s}
	if s.APISecret != "" {
		v.APISecret = "********"
	}
	return v
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Current(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.OK(w, redact(*st))
}

// Update handles PUT /api/v1/settings. Interval fields below 1 minute are
// rejected rather than clamped.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Current(r.Context())
	if err != nil {
		response.Error(w, mapError(err))
		return
	}

	// Decode over the current record so omitted fields keep their values.
	next := *current
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if next.SyncInterval < 1 || next.StockUpdateInterval < 1 || next.OrderCheckInterval < 1 {
		response.Error(w, apierror.ValidationError("intervals must be at least 1 minute"))
		return
	}
	if next.MinStockAlert < 0 {
		response.Error(w, apierror.ValidationError("minStockAlert must not be negative"))
		return
	}

	saved, err := h.settings.Update(r.Context(), next)
	if err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.OK(w, redact(*saved))
}

type testConnectionRequest struct {
	SupplierID string `json:"supplierId"`
	APIKey     string `json:"apiKey"`
	APISecret  string `json:"apiSecret"`
}

// TestConnection handles POST /api/v1/settings/test-connection. Credentials
// from the body are tried first; an empty body tests the stored ones.
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, apierror.BadRequest("invalid JSON"))
			return
		}
	}

	creds := trendyol.Credentials{
		SupplierID: req.SupplierID,
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
	}
	if creds.SupplierID == "" && creds.APIKey == "" && creds.APISecret == "" {
		stored, err := h.settings.Credentials(r.Context())
		if err != nil {
			response.Error(w, mapError(err))
			return
		}
		creds = stored
	}

	if err := h.api.CheckConnection(r.Context(), creds); err != nil {
		response.Error(w, mapError(err))
		return
	}
	response.Message(w, "connection successful")
}
