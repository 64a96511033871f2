package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub/config"
	"coursehub/internal/application/usecase"
	"coursehub/internal/infrastructure/gateway"
	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/infrastructure/observability"
	"coursehub/internal/infrastructure/security"
	"coursehub/internal/middleware"
	"coursehub/internal/repository"
	grpc_server "coursehub/internal/transport/grpc"
	handlers "coursehub/internal/transport/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "coursehub",
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		log.Warn("otel init failed, tracing disabled", "error", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("DB connection failed", "error", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("DB migration failed", "error", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
		}
		log.Info("connected to Redis", "addr", cfg.RedisAddr)
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting and search cache disabled")
	}

	courseRepo := repository.NewCourseRepository(db, rdb)
	purchaseRepo := repository.NewPurchaseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	payments := gateway.NewClient(gateway.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
		BaseURL:       cfg.RazorpayBaseURL,
		Timeout:       cfg.GatewayTimeout,
	})

	purchaseUC := usecase.NewPurchaseUseCase(courseRepo, purchaseRepo, eventRepo, payments, log,
		usecase.WithCurrency(cfg.Currency),
		usecase.WithWebhookGrants(cfg.WebhookGrantsEntitlement),
	)
	progressUC := usecase.NewProgressUseCase(courseRepo, progressRepo, purchaseRepo, log)
	catalogUC := usecase.NewCatalogUseCase(courseRepo, purchaseRepo, log)

	router := handlers.NewRouter(handlers.RouterDeps{
		Course:         handlers.NewCourseHandler(catalogUC, log),
		Payment:        handlers.NewPaymentHandler(purchaseUC, cfg.RazorpayKeyID, log),
		Progress:       handlers.NewProgressHandler(progressUC, log),
		Health:         handlers.NewHealthHandler(db, rdb),
		Tokens:         security.NewTokenManager(cfg.AccessSecret),
		Limiter:        middleware.NewRateLimiter(rdb),
		Log:            log,
		AllowedOrigins: cfg.Origins(),
		ServiceName:    "coursehub",
	})

	httpServer := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := grpc_server.NewServer(purchaseUC, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCPort)
		if err != nil {
			return err
		}
		log.Info("gRPC server listening", "addr", cfg.GRPCPort)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		err := httpServer.Shutdown(shutdownCtx)
		if shutdownTracing != nil {
			_ = shutdownTracing(shutdownCtx)
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
