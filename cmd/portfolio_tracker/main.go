package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/infrastructure/auth"
	"portfolio_tracker/internal/infrastructure/cache"
	"portfolio_tracker/internal/infrastructure/coinbase"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/httpclient"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/infrastructure/scheduler"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/metrics"
)

func main() {
	cfgPath := configloader.PathFromEnv()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "path", cfgPath, "error", err)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	appLogger := logger.NewSlogAdapter()
	appLogger.Info("Configuration loaded", "path", cfgPath)

	metrics.MustRegisterMetrics()

	creds, err := provider.NewCredentialProvider(cfg.Credentials.EnvFile, cfg.Credentials.KeyFile, appLogger).GetCredentials()
	if err != nil {
		logger.Fatal("Failed to load API credentials", "error", err)
	}

	signer, err := auth.NewJWTSigner(creds.KeyName, creds.PrivateKey,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.TokenTTL()),
	)
	if err != nil {
		logger.Fatal("Failed to initialize request signer", "error", err)
	}

	executor := httpclient.NewExecutor(httpclient.Config{
		Scheme:             cfg.Coinbase.Scheme,
		Host:               cfg.Coinbase.APIHost,
		Timeout:            cfg.Coinbase.RequestTimeout(),
		RateLimitPerSecond: cfg.Coinbase.RateLimitPerSecond,
		RateLimitBurst:     cfg.Coinbase.RateLimitBurst,
	}, signer, zapLogger)

	exchange := coinbase.NewClient(executor, coinbase.Config{
		AccountsPageSize:     cfg.Coinbase.AccountsPageSize,
		TransactionsPageSize: cfg.Coinbase.TransactionsPageSize,
	}, zapLogger)

	portfolioSvc := service.NewPortfolioService(
		exchange,
		service.NewPriceService(exchange, cfg.Portfolio.PriceCacheTTL(), appLogger.With("component", "prices")),
		service.NewTransactionScanner(exchange, cfg.Portfolio.PageDelay(), appLogger.With("component", "scanner")),
		cache.NewSnapshotCache(cfg.Portfolio.CacheTTL(), nil),
		appLogger.With("component", "portfolio"),
		service.PortfolioConfig{
			QuoteCurrency:            cfg.Portfolio.QuoteCurrency,
			AnchorCurrency:           cfg.Portfolio.AnchorCurrency,
			RefreshTimeout:           cfg.Portfolio.RefreshTimeout(),
			MaxConcurrentEnrichments: cfg.Portfolio.MaxConcurrentEnrichments,
		},
	)
	appLogger.Info("PortfolioService initialized",
		"quote", cfg.Portfolio.QuoteCurrency, "anchor", cfg.Portfolio.AnchorCurrency)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.RefreshSchedule != "" {
		sched = scheduler.New(zapLogger)
		if err := sched.AddJob(cfg.Scheduler.RefreshSchedule, scheduler.NewRefreshJob(portfolioSvc)); err != nil {
			logger.Fatal("Failed to schedule portfolio refresh", "error", err)
		}
		sched.Start()
	}

	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewPortfolioHandler(portfolioSvc, cfg.Portfolio.QuoteCurrency, zapLogger)
	router := restapi.SetupRouter(handler, zapLogger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
