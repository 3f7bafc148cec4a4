// Package main запускает HTTP-сервер маркетплейса цифровых товаров.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/cache"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/config"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/handler"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/metrics"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/middleware"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/repository"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	// Суммы в ответах API отдаются числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewService(repo, service.Options{
		MinTopUp:        cfg.MinTopUpAmount,
		CashbackPercent: cfg.CashbackPercent,
		Metrics:         metrics.NewLedger(reg),
	})
	defer svc.Close()

	if cfg.AdminLogin != "" {
		adminID, err := svc.EnsureAdmin(ctx, cfg.AdminLogin, cfg.AdminPassword)
		if err != nil {
			sugar.Fatalw("admin bootstrap error", "error", err.Error())
		}
		sugar.Infow("admin account ready", "login", cfg.AdminLogin, "userID", adminID)
	}

	opts := handler.Options{
		RedeemLimit:  cfg.RedeemRateLimit,
		RedeemWindow: cfg.RedeemRateWindow,
		Gatherer:     reg,
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rdb.Close()

		opts.Idempotency = rdb
		opts.Limiter = rdb
	} else {
		sugar.Warn("REDIS_URL is not set: idempotency keys and redeem rate limit are disabled")
	}

	secret := cfg.AuthSecret
	if secret == "" {
		secret = uuid.NewString()
		sugar.Warn("AUTH_SECRET is not set: using a random secret, tokens will not survive restart")
	}

	authMiddleware := middleware.NewAuthMiddleware(secret, cfg.AuthTokenTTL)
	h := handler.NewHandler(svc, logger, authMiddleware, opts)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting marketshop server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
