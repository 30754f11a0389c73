package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/database"
	"github.com/iliyamo/warranty-manager/internal/handler"
	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/observability/logging"
	"github.com/iliyamo/warranty-manager/internal/observability/tracing"
	"github.com/iliyamo/warranty-manager/internal/queue"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/router"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, cfg.Tracing, cfg.Env)
	if err != nil {
		logger.Error("tracing init failed", "err", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Error("open database failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(ctx, db, logger); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	// nil when Redis is unreachable; cache and rate limits are then off.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable: cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	clock := lifecycle.RealClock{}
	users := repository.NewUserRepo(db)
	warranties := repository.NewWarrantyRepo(db)
	products := repository.NewProductRepo(db)
	events := repository.NewEventRepo(db)
	settings := repository.NewSettingsRepo(db)

	var publisher interface {
		PublishWarranty(context.Context, queue.WarrantyEvent) error
	} = queue.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		publisher = queue.NewPublisher(cfg.RabbitMQ.URL, logger)
		consumer := queue.NewReminderConsumer(cfg.RabbitMQ.URL, events, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reminder consumer stopped", "err", err)
			}
		}()
	}

	audit := service.NewAuditRecorder(logger, repository.NewAuditRepo(db), clock)
	warrantySvc := service.NewWarrantyService(logger, warranties, products, audit, clock, files, publisher, cfg.Storage.MaxFileSize)
	productSvc := service.NewProductService(logger, products, warranties, audit, clock, files)
	authSvc := service.NewAuthService(logger, users, repository.NewTokenRepo(db), settings, clock, cfg.Auth)
	userSvc := service.NewUserService(logger, users, audit, clock, files, cfg.Auth.BcryptCost)
	eventSvc := service.NewEventService(logger, events, warranties, products, clock)
	adminSvc := service.NewAdminService(logger, users, warranties, products, events, settings, audit, clock, cfg.SMTP)

	if cfg.SeedDefaultAccounts {
		n, err := userSvc.Seed(ctx, service.DefaultSeedAccounts)
		if err != nil {
			logger.Error("seed accounts failed", "err", err)
		} else if n > 0 {
			logger.Info("seeded default accounts", "created", n)
		}
	}

	var redisPing handler.Pinger
	if rdb != nil {
		redisPing = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	e := router.New(cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, cfg.Auth.JWTSecret),
		Warranty: handler.NewWarrantyHandler(warrantySvc),
		Product:  handler.NewProductHandler(productSvc),
		User:     handler.NewUserHandler(userSvc),
		Event:    handler.NewEventHandler(eventSvc),
		Admin:    handler.NewAdminHandler(adminSvc, userSvc, warrantySvc, productSvc, audit),
		Health:   handler.NewHealthHandler(handler.PingFunc(db.PingContext), redisPing, time.Now()),
	}, rdb, logger)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", "err", err)
	}
}
