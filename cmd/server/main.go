package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/bcv"
	gateway "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/mercantil"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/postgres"
	redisadapter "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/redis"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/secrets"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/smtp"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/config"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	cronHandler "github.com/steamsolutionsvzla/odoo-megalabs/internal/handlers/cron"
	webhookHandler "github.com/steamsolutionsvzla/odoo-megalabs/internal/handlers/webhook"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/middleware"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/exchangerate"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/mercantil"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/orders"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/crypto"
	pkgmiddleware "github.com/steamsolutionsvzla/odoo-megalabs/pkg/middleware"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/observability"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/resilience"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/security"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/shutdown"
)

const version = "0.1.0"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting payment confirmation service",
		zap.String("version", version),
		zap.String("environment", cfg.Logger.Environment),
		zap.String("default_company_id", cfg.Tenant.DefaultCompanyID.String()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownMgr := shutdown.NewManager(logger, 30*time.Second)

	// Database first so it is closed last
	db, err := postgres.Connect(ctx, poolConfig(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	shutdownMgr.RegisterCloser("database", db.Close)
	db.StartPoolMonitoring(ctx, time.Minute)

	deps := initDependencies(ctx, cfg, db.Pool(), shutdownMgr, logger)

	healthChecks := map[string]observability.Pinger{"database": db.Pool()}
	if deps.guard != nil {
		healthChecks["redis"] = deps.guard
	}
	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort),
		observability.NewHealthChecker(healthChecks),
		logger,
	)
	shutdownMgr.Register("metrics-server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})

	rateLimiter := pkgmiddleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	shutdownMgr.RegisterCloser("rate-limiter", rateLimiter.Shutdown)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           newRouter(cfg, deps, rateLimiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      deps.timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()
	shutdownMgr.RegisterHTTPServer("http-server", httpServer)

	// Scheduler last so it stops first
	if cfg.Rates.SchedulerEnabled {
		deps.scheduler.Start(ctx)
		logger.Info("Exchange rate scheduler started",
			zap.Duration("interval", cfg.Rates.Interval),
			zap.Bool("run_on_start", cfg.Rates.RunOnStart),
			zap.Int("tenants", len(cfg.Rates.TenantIDs)),
		)
	}
	shutdownMgr.Register("exchange-rate-scheduler", deps.scheduler.Shutdown)

	shutdownMgr.WaitForShutdown(ctx)
	cancel()
	if failed := shutdownMgr.Shutdown(); failed > 0 {
		logger.Error("Shutdown completed with errors", zap.Int("failed_components", failed))
		return
	}
	logger.Info("Service stopped")
}

// dependencies holds the wired services and handlers
type dependencies struct {
	guard        *redisadapter.DeliveryGuard
	scheduler    *exchangerate.Scheduler
	confirmation *webhookHandler.MercantilHandler
	shopify      *webhookHandler.ShopifyHandler
	shopifyAuth  *middleware.ShopifyWebhookAuth
	cron         *cronHandler.ExchangeRateHandler
	cronAuth     *middleware.CronAuth
	timeouts     *resilience.TimeoutConfig
}

func initDependencies(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, shutdownMgr *shutdown.Manager, logger *zap.Logger) *dependencies {
	tenant := cfg.Tenant.DefaultCompanyID
	timeouts := resilience.DefaultTimeoutConfig()
	adapterLogger := security.NewZapLogger(logger)

	dbExecutor := postgres.NewDBExecutor(pool)
	records := postgres.NewTransactionRecordRepository(pool)
	rates := postgres.NewExchangeRateRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paramStore := postgres.NewParameterStore(pool)

	secretManager, err := secrets.Open(ctx, cfg.Params.Backend, secrets.Options{
		LocalBasePath:  cfg.Params.LocalSecretsDir,
		VaultAddress:   cfg.Params.VaultAddress,
		VaultToken:     cfg.Params.VaultToken,
		VaultMountPath: cfg.Params.VaultMountPath,
		AWSRegion:      cfg.Params.AWSRegion,
		CacheTTL:       cfg.Params.CacheTTL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize parameter backend",
			zap.String("backend", cfg.Params.Backend),
			zap.Error(err))
	}
	params := config.NewParamResolver(paramStore, secretManager, cfg.Params.SecretPathPrefix, logger)

	codec := crypto.NewAESECBCodec()
	linkSvc := mercantil.NewLinkService(params, rates, records, gateway.NewLinkBuilder(codec),
		cfg.Mercantil.RequireIngestedRate, logger)
	confirmationSvc := mercantil.NewConfirmationService(dbExecutor, records, ledger, params, codec,
		cfg.Mercantil.LedgerBankJournal, logger)

	var mailer ports.Mailer
	if cfg.SMTP.Enabled() {
		mailer = smtp.NewMailer(smtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			MaxRetries: cfg.SMTP.MaxRetries,
		}, adapterLogger)
	} else {
		logger.Warn("SMTP_HOST not set, payment links will not be emailed")
	}

	var (
		guard    *redisadapter.DeliveryGuard
		guardArg ports.DeliveryGuard
	)
	if cfg.Redis.URL != "" {
		client, err := redisadapter.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		shutdownMgr.Register("redis", func(context.Context) error { return client.Close() })
		guard = redisadapter.NewDeliveryGuard(client, cfg.Redis.DedupeTTL, logger)
		guardArg = guard
	}

	orderSvc := orders.NewService(dbExecutor, orderRepo, ledger, records, linkSvc, mailer, guardArg,
		orders.Config{
			BankJournal: cfg.Mercantil.LedgerBankJournal,
			ReturnURL:   cfg.Mercantil.ReturnURL,
		}, logger)

	fetcher := bcv.NewClient(bcv.Config{
		URL:                cfg.Rates.BCVURL,
		Timeout:            cfg.Rates.Timeout,
		InsecureSkipVerify: cfg.Rates.InsecureSkipVerify,
	}, adapterLogger)
	job := exchangerate.NewIngestionJob(dbExecutor, rates, fetcher, cfg.Rates.TenantIDs, cfg.Rates.Location(), logger)
	scheduler := exchangerate.NewScheduler(job, cfg.Rates.Interval, timeouts.CronJob, cfg.Rates.RunOnStart, logger)

	cronAuth := middleware.NewCronAuth(cfg.Cron.Secret, logger)

	return &dependencies{
		guard:        guard,
		scheduler:    scheduler,
		confirmation: webhookHandler.NewMercantilHandler(confirmationSvc, tenant, logger),
		shopify:      webhookHandler.NewShopifyHandler(orderSvc, tenant, logger),
		shopifyAuth:  middleware.NewShopifyWebhookAuth(params, tenant, logger),
		cron:         cronHandler.NewExchangeRateHandler(scheduler, cronAuth, logger),
		cronAuth:     cronAuth,
		timeouts:     timeouts,
	}
}

func newRouter(cfg *config.Config, deps *dependencies, rateLimiter *pkgmiddleware.RateLimiter, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	webhookTimeout := pkgmiddleware.Timeout(deps.timeouts.WebhookContext, logger)

	route := func(pattern string, h http.Handler) {
		mux.Handle(pattern, observability.HTTPMetricsMiddleware(pattern, h))
	}

	// Bank confirmations bypass the rate limiter
	route("/v1/webhooks/mercantil/payment/confirmation",
		webhookTimeout(http.HandlerFunc(deps.confirmation.HandleConfirmation)))
	route("/v1/webhooks/shopify/orders",
		webhookTimeout(rateLimiter.Middleware(deps.shopifyAuth.Middleware(http.HandlerFunc(deps.shopify.HandleOrderCreated)))))
	route("/cron/fetch-exchange-rate", http.HandlerFunc(deps.cron.FetchExchangeRate))
	route("/cron/health", http.HandlerFunc(deps.cron.HealthCheck))

	return pkgmiddleware.Chain(mux,
		pkgmiddleware.RequestLogger(logger),
		pkgmiddleware.Recovery(logger),
		middleware.NewSecurityHeaders(cfg.Logger.Environment != "production").Middleware,
	)
}

func poolConfig(cfg *config.Config) *postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	pc.MaxConns = cfg.Database.MaxConns
	pc.MinConns = cfg.Database.MinConns
	return pc
}

// initLogger initializes the logger
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
