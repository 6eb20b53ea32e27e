package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendyol-sync-api/internal/cache"
	"trendyol-sync-api/internal/config"
	"trendyol-sync-api/internal/handler"
	"trendyol-sync-api/internal/repository"
	"trendyol-sync-api/internal/router"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/internal/trendyol"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Trendyol Sync API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the local store based on config
	var store repository.Store
	switch cfg.Database.Type {
	case "mysql":
		mysqlStore, err := repository.NewMySQLStore(cfg.Database.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite store initialized")
	}
	defer store.Close()

	// Initialize the Redis settings cache (optional)
	var settingsCache *cache.SettingsCache
	if cfg.Cache.Type == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed: %v", err)
		} else {
			settingsCache = cache.NewSettingsCache(redisClient, cfg.Cache.TTL)
			log.Println("Redis settings cache initialized")
		}
		cancel()
	}

	// Initialize services
	settingsService := service.NewSettingsService(store, settingsCache)

	apiClient := trendyol.NewClient(cfg.Trendyol.BaseURL, cfg.Trendyol.Timeout, func(ctx context.Context) (trendyol.Credentials, error) {
		return settingsService.Credentials(ctx)
	})

	reconciler := service.NewReconciler(store, store)
	syncService := service.NewSyncService(apiClient, reconciler, store, store)
	webhookService := service.NewWebhookService(reconciler, store, cfg.Trendyol.WebhookSecret)

	scheduler := service.NewScheduler(syncService, settingsService, service.DefaultSchedulerConfig())
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handlers
	healthHandler := handler.New(store)
	productHandler := handler.NewProductHandler(store, reconciler, syncService)
	orderHandler := handler.NewOrderHandler(store, syncService)
	stockHandler := handler.NewStockHandler(store, syncService, settingsService)
	settingsHandler := handler.NewSettingsHandler(settingsService, apiClient)
	webhookHandler := handler.NewWebhookHandler(webhookService)

	// Create router
	r := router.New(router.Config{
		Handler:         healthHandler,
		ProductHandler:  productHandler,
		OrderHandler:    orderHandler,
		StockHandler:    stockHandler,
		SettingsHandler: settingsHandler,
		WebhookHandler:  webhookHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
