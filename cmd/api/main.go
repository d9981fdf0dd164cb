package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"shopsight-backend/internal/application"
	"shopsight-backend/internal/application/webhook_handlers"
	"shopsight-backend/internal/config"
	"shopsight-backend/internal/infrastructure/metrics"
	"shopsight-backend/internal/infrastructure/pubsub"
	"shopsight-backend/internal/infrastructure/redisstore"
	"shopsight-backend/internal/infrastructure/repository"
	shopifyinfra "shopsight-backend/internal/infrastructure/shopify"
)

// adminAPIRequestsPerSecond paces backfill GraphQL calls below the
// Admin API bucket refill rate.
const adminAPIRequestsPerSecond = 2

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found, reading environment directly")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := repository.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}
	if !cfg.SkipMigrations {
		if err := repository.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	redisClient, err := redisstore.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Repositories
	tenants := repository.NewGormTenantRepository(db)
	stores := repository.NewGormStoreRepository(db)
	eventLog := repository.NewGormEventLog(db)
	orders := repository.NewGormOrderRepository(db)
	products := repository.NewGormProductRepository(db)
	customers := repository.NewGormCustomerRepository(db)
	funnel := repository.NewGormFunnelRepository(db)

	// Shopify-facing infrastructure
	verifier := shopifyinfra.NewWebhookVerifier(cfg.Shopify.APISecret)
	adminClient := shopifyinfra.NewAdminClient(cfg.Shopify.APIVersion, adminAPIRequestsPerSecond, logger)
	oauthClient := shopifyinfra.NewOAuthClient(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		cfg.Shopify.Scopes,
		cfg.AppURL+"/api/oauth/callback",
		logger,
	)
	states := redisstore.NewStateStore(redisClient)

	bus := pubsub.NewEventBus(logger)
	instruments := metrics.New(prometheus.DefaultRegisterer)

	// Application services
	resolver := application.NewTenantResolver(stores, tenants, logger)
	webhookService := application.NewWebhookService(
		verifier,
		resolver,
		eventLog,
		[]application.WebhookHandler{
			webhook_handlers.NewOrderHandler(orders, logger),
			webhook_handlers.NewProductHandler(products, logger),
			webhook_handlers.NewCustomerHandler(customers, logger),
			webhook_handlers.NewCartHandler(funnel, logger),
			webhook_handlers.NewCheckoutHandler(funnel, logger),
			webhook_handlers.NewAppUninstalledHandler(stores, logger),
		},
		bus,
		logger,
	)
	oauthService := application.NewOAuthService(oauthClient, states, stores, tenants, cfg.AppURL, logger)
	backfillService := application.NewBackfillService(resolver, adminClient, orders, products, customers, logger)
	analyticsService := application.NewAnalyticsService(products, customers, orders, funnel, resolver, adminClient, logger)
	adminService := application.NewAdminService(funnel, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler(db, redisClient))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, req, "./docs/swagger.json")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/{resource}/{action}", webhookHandler(webhookService, instruments, logger))

		r.Get("/oauth/install", oauthInstallHandler(oauthService, logger))
		r.Get("/oauth/callback", oauthCallbackHandler(oauthService, cfg.AppURL, logger))

		r.Post("/admin/backfill-orders", backfillHandler("orders", backfillService.BackfillOrders, instruments, logger))
		r.Post("/admin/backfill-products", backfillHandler("products", backfillService.BackfillProducts, instruments, logger))
		r.Post("/admin/backfill-customers", backfillHandler("customers", backfillService.BackfillCustomers, instruments, logger))
		r.Post("/admin/reset-tenant", resetTenantHandler(adminService, resolver, logger))

		r.Get("/orders/list", listOrdersHandler(orders, resolver, logger))
		r.Get("/products/recent", listProductsHandler(products, resolver, logger))
		r.Get("/customers/list", listCustomersHandler(customers, resolver, logger))

		r.Get("/analytics/summary", summaryHandler(analyticsService, resolver, logger))
		r.Get("/analytics/checkouts-series", checkoutSeriesHandler(analyticsService, resolver, logger))
		r.Get("/analytics/overview", overviewHandler(analyticsService, logger))
		r.Get("/analytics/orders-by-date", ordersByDateHandler(analyticsService, logger))

		r.Get("/realtime/summary", realtimeSummaryHandler(bus, analyticsService, resolver, logger))
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}
