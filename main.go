package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"checkoutupsell/api/analytics"
	"checkoutupsell/api/config"
	"checkoutupsell/api/database"
	"checkoutupsell/api/handlers"
	"checkoutupsell/api/logger"
	"checkoutupsell/api/store"
	"checkoutupsell/api/upsell"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.App.Debug,
		SentryDSN: cfg.App.SentryDSN,
		Tags:      map[string]string{"service": "checkout-upsell-api"},
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Flush(2 * time.Second)

	if cfg.App.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- PostgreSQL (upsell blocks and analytics) ---
	dbClient, err := database.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, dbClient.DB); err != nil {
			logger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	// --- Stores ---
	upsellStore := store.NewUpsellStore(dbClient.Gorm)
	analyticsStore := store.NewAnalyticsStore(dbClient.Gorm)

	analyticsOpts := []analytics.Option{analytics.WithEventLimit(cfg.Analytics.EventLimit)}

	// --- ClickHouse (optional event mirror) ---
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(ctx, cfg.ClickHouse)
		if err != nil {
			logger.Fatal("Failed to initialize ClickHouse database", zap.Error(err))
		}
		defer chClient.Close()

		mirror := store.NewClickHouseEventMirror(chClient)
		if err := mirror.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare ClickHouse schema", zap.Error(err))
		}
		analyticsOpts = append(analyticsOpts, analytics.WithMirror(mirror))
	}

	// --- Services and handlers ---
	resolver := upsell.NewResolver(upsellStore,
		upsell.WithCheckoutOnly(cfg.Upsell.CheckoutOnly),
		upsell.WithProductChain(upsell.DefaultChain(cfg.Upsell.FallbackProductHandles)),
	)
	analyticsService := analytics.NewService(analyticsStore, upsellStore, analyticsOpts...)
	adminService := upsell.NewAdminService(upsellStore)

	if cfg.Shopify.APISecret == "" {
		logger.Warn("SHOPIFY_API_SECRET is not set; admin and webhook requests will be rejected")
	}

	r := handlers.NewRouter(handlers.RouterConfig{
		Upsells:          handlers.NewUpsellHandlers(resolver),
		Analytics:        handlers.NewAnalyticsHandlers(analyticsService),
		Admin:            handlers.NewAdminHandlers(adminService),
		Webhooks:         handlers.NewWebhookHandlers(upsellStore, analyticsStore),
		Health:           handlers.NewHealthHandlers(dbClient),
		ShopifyAPIKey:    cfg.Shopify.APIKey,
		ShopifyAPISecret: cfg.Shopify.APISecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, zap.String("stage", "shutdown"))
	}

	logger.Info("Server exiting.")
}
