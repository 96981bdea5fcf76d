package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-access-platform/internal/config"
	"course-access-platform/internal/domain/model"
	pg "course-access-platform/internal/infra/db/postgres"
	"course-access-platform/internal/infra/httpcallback"
	"course-access-platform/internal/infra/logging"
	"course-access-platform/internal/infra/metrics"
	red "course-access-platform/internal/infra/redis"
	"course-access-platform/internal/infra/sched"
	"course-access-platform/internal/infra/web"
	"course-access-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	fullPrice, err := model.ParseMoney(cfg.Payment.FullPrice)
	if err != nil {
		log.Fatalf("payment.full_price: %v", err)
	}
	logger.Info().
		Str("full_price", fullPrice.String()).
		Str("currency", cfg.Payment.Currency).
		Msg("premium pricing configured")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	promoRepo := pg.NewPromoCodeRepo(pool)
	linkRepo := pg.NewPricingLinkRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	accessUC := usecase.NewAccessUseCase(accountRepo, cfg.Access.ClearRenewDateOnRevoke, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, accessUC, logger)
	promoUC := usecase.NewPromoUseCase(promoRepo, linkRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, promoUC, accessUC, txManager, locker, fullPrice, logger)
	statsUC := usecase.NewStatsUseCase(accountRepo)

	// ---- Servers ----
	webServer := web.NewServer(&cfg.Web, accountUC, accessUC, promoUC, paymentUC, statsUC, rateLimiter, logger)
	callbackServer := httpcallback.NewServer(&cfg.Callback, paymentUC, logger)

	go func() {
		if err := webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
			cancel()
		}
	}()
	go func() {
		if err := callbackServer.Start(); err != nil {
			logger.Error().Err(err).Msg("callback server stopped")
			cancel()
		}
	}()

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Access.ExpiryCheckInterval, accessUC, logger)
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = webServer.Shutdown(shutdownCtx)
	_ = callbackServer.Shutdown(shutdownCtx)
}
