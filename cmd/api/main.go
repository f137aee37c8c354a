package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/moralesdev/fieldbill-backend/api/routes"
	"github.com/moralesdev/fieldbill-backend/internal/accounts"
	"github.com/moralesdev/fieldbill-backend/internal/channels/hostedlink"
	"github.com/moralesdev/fieldbill-backend/internal/channels/manual"
	"github.com/moralesdev/fieldbill-backend/internal/fees"
	"github.com/moralesdev/fieldbill-backend/internal/invoices"
	"github.com/moralesdev/fieldbill-backend/internal/ledger"
	"github.com/moralesdev/fieldbill-backend/internal/paymentsettings"
	"github.com/moralesdev/fieldbill-backend/internal/settlement"
	"github.com/moralesdev/fieldbill-backend/pkg/config"
	"github.com/moralesdev/fieldbill-backend/pkg/db"
	"github.com/moralesdev/fieldbill-backend/pkg/logger"
	"github.com/moralesdev/fieldbill-backend/pkg/metrics"
	"github.com/moralesdev/fieldbill-backend/pkg/migrate"
	"github.com/moralesdev/fieldbill-backend/pkg/redis"
	"github.com/moralesdev/fieldbill-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var squareClient *square.Client
	if cfg.Square.Configured() {
		squareClient, err = square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap square", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "square not configured, hosted payment links disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	coordinator, err := settlement.NewCoordinator(settlement.CoordinatorParams{
		Repo:    ledgerRepo,
		Metrics: settlementMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement coordinator", err)
		os.Exit(1)
	}

	hostedLinkParams := hostedlink.ServiceParams{
		Ledger:      ledgerService,
		Repo:        ledgerRepo,
		Coordinator: coordinator,
		Metrics:     settlementMetrics,
		Logger:      logg,
		LinkTimeout: cfg.Settlement.LinkTimeout,
	}
	if squareClient != nil {
		hostedLinkParams.Square = squareClient
	}
	hostedLinkService, err := hostedlink.NewService(hostedLinkParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create hosted link channel", err)
		os.Exit(1)
	}

	webhookGuard, err := hostedlink.NewIdempotencyGuard(redisClient, cfg.Settlement.WebhookEventTTL, "square-event")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	manualService, err := manual.NewService(manual.ServiceParams{
		Ledger:      ledgerService,
		Coordinator: coordinator,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create manual channel", err)
		os.Exit(1)
	}

	settingsService, err := paymentsettings.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create payment settings service", err)
		os.Exit(1)
	}

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Ledger:   ledgerService,
		Accounts: accounts.NewRepository(dbClient.DB()),
		Settings: settingsService,
		Manual:   manualService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice gateway", err)
		os.Exit(1)
	}

	feeService, err := fees.NewService(fees.ServiceParams{
		DB:           dbClient.DB(),
		FeeCapPoints: cfg.Settlement.FeeCapPoints,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fee service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, squareClient, registry, routes.Services{
			Ledger:       ledgerService,
			HostedLink:   hostedLinkService,
			Manual:       manualService,
			Invoices:     invoiceService,
			Fees:         feeService,
			WebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
