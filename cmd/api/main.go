package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/fastcopy/printshop/internal/checkout/adapters"
	"github.com/fastcopy/printshop/internal/checkout/adapters/cashfree"
	"github.com/fastcopy/printshop/internal/checkout/adapters/disk"
	checkouthttp "github.com/fastcopy/printshop/internal/checkout/adapters/http"
	checkoutpostgres "github.com/fastcopy/printshop/internal/checkout/adapters/postgres"
	redisadapter "github.com/fastcopy/printshop/internal/checkout/adapters/redis"
	"github.com/fastcopy/printshop/internal/checkout/app"
	checkoutmetrics "github.com/fastcopy/printshop/internal/checkout/metrics"
	"github.com/fastcopy/printshop/internal/config"
	"github.com/fastcopy/printshop/internal/database"
	idempostgres "github.com/fastcopy/printshop/internal/idempotency/postgres"
	"github.com/fastcopy/printshop/internal/notify"
	"github.com/fastcopy/printshop/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(logLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing && cfg.Telemetry.OTelEndpoint != "",
		EnableMetrics:  cfg.Telemetry.EnableMetrics && cfg.Telemetry.OTelEndpoint != "",
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	location, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		logger.Error("failed to load shop timezone", "timezone", cfg.Business.Timezone, "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
	}

	meter := otel.Meter(cfg.Service.Name)

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}
	svcMetrics, err := checkoutmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create checkout metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := checkouthttp.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}
	notifyMetrics, err := notify.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create notification metrics", "error", err)
		os.Exit(1)
	}

	orders := adapters.NewObservableOrderRepository(checkoutpostgres.NewOrderRepository(pool), dbMetrics)
	staging := checkoutpostgres.NewStagingStore(pool)
	batches := checkoutpostgres.NewBatchRepository(pool)
	coupons := checkoutpostgres.NewCouponRepository(pool)
	rates := checkoutpostgres.NewRateRepository(pool)
	holidays := checkoutpostgres.NewHolidayRepository(pool)
	idemStore := idempostgres.NewStore(pool)
	files := disk.NewFileStore(cfg.Files.StagingDir, cfg.Files.OrdersDir)
	notifier := notify.NewLogNotifier(logger, notifyMetrics)

	gateway := adapters.NewObservableGateway(cashfree.NewClient(cashfree.Config{
		BaseURL:      cfg.Cashfree.BaseURL,
		ClientID:     cfg.Cashfree.ClientID,
		ClientSecret: cfg.Cashfree.ClientSecret,
		ReturnURL:    cfg.Cashfree.ReturnURL,
		NotifyURL:    cfg.Cashfree.NotifyURL,
	}, logger), svcMetrics)

	deps := app.Deps{
		Orders:    orders,
		Staging:   staging,
		Batches:   batches,
		Coupons:   coupons,
		Rates:     rates,
		Holidays:  holidays,
		Gateway:   gateway,
		Files:     files,
		Notifier:  notifier,
		IdemStore: idemStore,
		Tx:        database.NewTransactor(pool),
		Location:  location,
		Currency:  cfg.Business.Currency,
		Logger:    logger,
		Metrics:   svcMetrics,
	}

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		deps.Mirror = redisadapter.NewCartMirror(client, cfg.Redis.CacheTTL)
		logger.Info("cart mirror enabled", "addr", cfg.Redis.Addr)
	}

	service := app.NewService(deps)
	handler := checkouthttp.NewHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(checkouthttp.WithMetrics(httpMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := database.CheckHealth(req.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	handler.Register(r)

	sweeper := app.NewSweeper(service, orders, cfg.Sweeper.Interval, cfg.Sweeper.MinAge, logger)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
