package router

import (
	"trendyol-sync-api/internal/handler"
	"trendyol-sync-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	ProductHandler  *handler.ProductHandler
	OrderHandler    *handler.OrderHandler
	StockHandler    *handler.StockHandler
	SettingsHandler *handler.SettingsHandler
	WebhookHandler  *handler.WebhookHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Trendyol-Signature"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.ProductHandler != nil {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.ProductHandler.List)
				r.Post("/", cfg.ProductHandler.Create)
				r.Post("/sync", cfg.ProductHandler.Sync)
				r.Get("/{barcode}", cfg.ProductHandler.Get)
				r.Put("/{barcode}", cfg.ProductHandler.Update)
				r.Delete("/{barcode}", cfg.ProductHandler.Delete)
			})
		}

		if cfg.OrderHandler != nil {
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", cfg.OrderHandler.List)
				r.Post("/sync", cfg.OrderHandler.Sync)
				r.Get("/{orderId}", cfg.OrderHandler.Get)
				r.Put("/{orderId}/status", cfg.OrderHandler.UpdateStatus)
			})
		}

		if cfg.StockHandler != nil {
			r.Route("/stock", func(r chi.Router) {
				r.Get("/", cfg.StockHandler.List)
				r.Put("/batch", cfg.StockHandler.BatchUpdate)
				r.Post("/sync", cfg.StockHandler.Sync)
				r.Get("/{barcode}", cfg.StockHandler.Get)
				r.Put("/{barcode}", cfg.StockHandler.Update)
			})
		}

		if cfg.SettingsHandler != nil {
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", cfg.SettingsHandler.Get)
				r.Put("/", cfg.SettingsHandler.Update)
				r.Post("/test-connection", cfg.SettingsHandler.TestConnection)
			})
		}

		if cfg.WebhookHandler != nil {
			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/orders", cfg.WebhookHandler.Receive)
				r.Post("/inventory", cfg.WebhookHandler.Receive)
				r.Post("/prices", cfg.WebhookHandler.Receive)
				r.Get("/events", cfg.WebhookHandler.Events)
				r.Post("/events/{id}/retry", cfg.WebhookHandler.Retry)
			})
		}
	})

	return r
}
