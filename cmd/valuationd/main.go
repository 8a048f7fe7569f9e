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

	fxclient "valuation/internal/client/fx"
	"valuation/internal/client/marketdata"
	"valuation/internal/config"
	cronrunner "valuation/internal/cron"
	"valuation/internal/db"
	"valuation/internal/handler"
	"valuation/internal/history"
	"valuation/internal/logger"
	"valuation/internal/pricing"
	gormrepository "valuation/internal/repository/gorm"
	"valuation/internal/service"
	"valuation/internal/snapshot"
)

func main() {
	cfgPath := os.Getenv("VE_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("VE_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := dbConn.SetTimezone(cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := dbConn.AutoMigrate(); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	marketHTTP := &http.Client{Timeout: cfg.MarketData.Timeout}
	marketClient := marketdata.NewClient(marketHTTP, cfg.MarketData.BaseURL)

	fxHTTP := &http.Client{Timeout: cfg.Fx.Timeout}
	fxService := &pricing.FxService{
		Primary:    fxclient.NewPrimaryClient(fxHTTP, cfg.Fx.PrimaryBaseURL, os.Getenv(cfg.Fx.PrimaryAPIKeyEnv)),
		Secondary:  fxclient.NewSecondaryClient(fxHTTP, cfg.Fx.SecondaryBaseURL),
		Currencies: cfg.Fx.Currencies,
		Timeout:    cfg.Fx.Timeout,
		Logger:     logger,
	}

	resolver := &pricing.Resolver{
		Repo:                 store,
		Market:               marketClient,
		Fx:                   fxService,
		Logger:               logger,
		ForwardToleranceDays: cfg.Pricing.ForwardToleranceDays,
		CoverageThreshold:    cfg.Pricing.CoverageThreshold,
		FetchTimeout:         cfg.Pricing.FetchTimeout,
	}

	reconstructor := &history.Reconstructor{Repo: store, Logger: logger}
	portfolioService := &service.PortfolioService{
		Repo:    store,
		History: reconstructor,
		Logger:  logger,
	}

	snapshotJob := &snapshot.Job{
		Repo:              store,
		Prices:            resolver,
		Logger:            logger,
		Timezone:          cfg.Snapshot.Timezone,
		BenchmarkTicker:   cfg.Snapshot.BenchmarkTicker,
		BenchmarkLabel:    cfg.Snapshot.BenchmarkLabel,
		BenchmarkCurrency: cfg.Snapshot.BenchmarkCurrency,
		FetchTimeout:      cfg.Snapshot.FetchTimeout,
	}
	snapshotJob.OnCompleted = func(ctx context.Context, res snapshot.Result) error {
		// Report generation is a downstream consumer; its failures never
		// roll back snapshots.
		logger.Info("snapshot completed, reports may regenerate",
			zap.String("state", res.State),
			zap.Time("date", res.Date),
		)
		return nil
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	portfolioHandler := &handler.PortfolioHandler{Service: portfolioService}
	portfolioHandler.Register(engine)
	jobHandler := &handler.JobHandler{Repo: store, Job: snapshotJob}
	jobHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled && cfg.Snapshot.Enabled {
		_, err = cronRunner.Add(cfg.Cron.DailySnapshot, func(ctx context.Context) {
			res := snapshotJob.RunOnce(ctx)
			if res.State == snapshot.StateFailed {
				logger.Error("snapshot job failed", zap.Error(res.Err))
			}
		})
		if err != nil {
			logger.Fatal("schedule snapshot job failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
