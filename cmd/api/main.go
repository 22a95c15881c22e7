package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/cache"
	"github.com/crateside/shop_api/internal/config"
	"github.com/crateside/shop_api/internal/database"
	"github.com/crateside/shop_api/internal/handler"
	"github.com/crateside/shop_api/internal/middleware"
	"github.com/crateside/shop_api/internal/ratelimit"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/service"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/internal/utils"
	"github.com/crateside/shop_api/internal/worker"
	"github.com/crateside/shop_api/pkg/discogs"
	"github.com/crateside/shop_api/pkg/pos"
)

// main is the application entrypoint for the Crateside sync engine.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger and admin token validation
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting crateside sync engine")
	utils.InitJWT(cfg.AdminJWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize caches
	catalogCache := cache.NewCatalogCache(redisClient, &cfg.Cache)
	enrichCache := cache.NewEnrichmentCache(redisClient)

	// 4. Initialize external clients
	posClient := pos.NewClient(cfg.POS.BaseURL, cfg.POS.AccessToken, cfg.POS.LocationID)

	limiter := ratelimit.New(cfg.Discogs.RequestsPerMinute)
	defer limiter.Close()
	discogsClient := discogs.NewClient(cfg.Discogs.BaseURL, cfg.Discogs.Token, cfg.Discogs.UserAgent, limiter)
	if cfg.Discogs.Token == "" {
		log.Warn().Msg("Discogs token not configured - enrichment will be skipped")
	}

	// 4a. SSE hub for the ops dashboard
	hub := sse.NewHub()

	// 5. Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// 6. Initialize services
	catalogSvc := service.NewCatalogService(catalogRepo, inventoryRepo)
	inventorySvc := service.NewInventoryService(inventoryRepo)
	orderSvc := service.NewOrderService(orderRepo, catalogRepo)
	ingestSvc := service.NewIngestService(catalogSvc, inventorySvc, orderSvc, eventRepo, catalogCache, hub)
	refreshSvc := service.NewRefreshService(
		posClient, discogsClient, limiter,
		catalogSvc, inventorySvc, orderSvc,
		catalogCache, enrichCache, hub,
		cfg.Worker.EnrichmentBatchLimit, cfg.Worker.OrderLookback,
	)
	reconcileSvc := service.NewReconcileService(
		posClient, catalogRepo, inventoryRepo, orderRepo,
		cfg.Worker.OrderPropagationWindow, cfg.Worker.OrderLookback,
	)
	alertSvc := service.NewAlertService(&cfg.Alert)
	reportSvc := service.NewReportService(reconcileSvc, alertSvc, reportRepo, hub)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(db, redisClient, catalogCache, eventRepo, orderRepo),
		Catalog: handler.NewCatalogHandler(catalogSvc, catalogCache),
		Webhook: handler.NewWebhookHandler(ingestSvc),
		Admin:   handler.NewAdminHandler(reportSvc, refreshSvc, ingestSvc, orderSvc, inventorySvc),
		SSE:     handler.NewSSEHandler(hub),
	}

	// 8. Initialize middleware
	inventorySig := middleware.NewSignatureMiddleware(cfg.Webhook.InventorySecret, cfg.Webhook.InventorySecretFallback)
	ordersSig := middleware.NewSignatureMiddleware(cfg.Webhook.OrdersSecret, cfg.Webhook.OrdersSecretFallback)
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, inventorySig, ordersSig, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewRefreshWorker(refreshSvc, cfg.Worker.RefreshInterval).Start(ctx)
	go worker.NewReconcileWorker(reportSvc, cfg.Worker.ReconcileInterval).Start(ctx)
	go worker.NewBackfillWorker(orderSvc, cfg.Worker.BackfillInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Webhook *handler.WebhookHandler
	Admin   *handler.AdminHandler
	SSE     *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(
	router *gin.Engine,
	handlers *Handlers,
	inventorySig *middleware.SignatureMiddleware,
	ordersSig *middleware.SignatureMiddleware,
	jwtMiddleware *middleware.JWTMiddleware,
) {
	// POS webhook endpoints, each verified against its own secret
	router.POST("/webhook/inventory", inventorySig.Handle(), handlers.Webhook.HandleInventory)
	router.POST("/webhook/orders", ordersSig.Handle(), handlers.Webhook.HandleOrders)

	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Storefront read API (public)
	catalog := router.Group("/v1/catalog")
	{
		catalog.GET("/products", handlers.Catalog.GetProducts)
		catalog.GET("/products/:id", handlers.Catalog.GetProduct)
	}

	// Ops event stream; JWT arrives as a query token because EventSource
	// cannot set headers, so it sits outside the admin group.
	router.GET("/v1/admin/events/stream", handlers.SSE.Stream)

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle())
	{
		// Manual sync triggers
		admin.POST("/refresh", handlers.Admin.TriggerRefresh)
		admin.POST("/enrich", handlers.Admin.TriggerEnrichment)

		// Reconciliation
		admin.POST("/reconcile/inventory", handlers.Admin.RunInventoryCheck)
		admin.POST("/reconcile/orders", handlers.Admin.RunOrdersCheck)
		admin.GET("/reports", handlers.Admin.ListReports)
		admin.GET("/reports/latest", handlers.Admin.GetLatestReport)

		// Audit and mirror visibility
		admin.GET("/webhook-events", handlers.Admin.ListWebhookEvents)
		admin.GET("/orders", handlers.Admin.ListRecentOrders)
		admin.GET("/orders/:orderNumber", handlers.Admin.GetOrder)
		admin.GET("/inventory/:itemId/history", handlers.Admin.GetStockHistory)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
