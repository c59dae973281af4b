package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/example/moonjewelry/pkg/checkout"
	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/discovery"
	"github.com/example/moonjewelry/pkg/grpc"
	"github.com/example/moonjewelry/pkg/logging"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/payment"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/example/moonjewelry/storefront"
	"go.uber.org/zap"
)

// @title Moon Jewelry Admin API
// @version 1.0
// @description Back-office JSON API of the Moon Jewelry storefront.
// @BasePath /admin
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-KEY
func main() {
	configPath := flag.String("config", os.Getenv("MOON_CONFIG"), "path to the yaml config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.String("http", cfg.HTTP.Addr()),
		zap.Int("ops_port", cfg.Server.Port))

	db, err := repository.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	store := repository.NewStore(db)

	ctx := context.Background()
	deps := map[string]grpc.Pinger{"database": store}

	var cache storefront.JewelryCache
	if cfg.Redis.Addr != "" {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()
		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed", zap.Error(err))
		} else {
			logger.Info("Redis connected successfully")
		}
		cache = redisRepo
		deps["redis"] = redisRepo
	}

	sinks := notify.Sinks{}
	var audit storefront.AuditReader
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := repository.NewMongoRepository(ctx, &cfg.MongoDB)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoRepo.Close(c)
		}()
		sinks.Audit = mongoRepo
		audit = mongoRepo
		deps["mongodb"] = mongoRepo
	}

	if cfg.Mail.Enabled {
		mailer, err := notify.NewSESMailer(ctx, &cfg.Mail, logger)
		if err != nil {
			logger.Fatal("Failed to configure mailer", zap.Error(err))
		}
		sinks.Mail = mailer
	}

	feed := storefront.NewFeed(logger)
	sinks.Publisher = feed

	notifier, err := notify.New(sinks, logger)
	if err != nil {
		logger.Fatal("Failed to start notifier", zap.Error(err))
	}

	carts := cart.NewService(store, logger)
	gateway := payment.NewClient(&cfg.Payment, logger)
	checkoutSvc := checkout.NewService(store, carts, gateway, notifier, cfg.Payment.Currency, logger)

	sf, err := storefront.New(storefront.Deps{
		Config:   cfg,
		Store:    store,
		Carts:    carts,
		Checkout: checkoutSvc,
		Cache:    cache,
		Audit:    audit,
		Notifier: notifier,
		Feed:     feed,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create storefront", zap.Error(err))
	}

	ops := grpc.NewHealthServer(&cfg.Server, logger, deps)

	serverErr := make(chan error, 2)
	go func() {
		if err := sf.Start(); err != nil {
			serverErr <- err
		}
	}()
	go func() {
		if err := ops.Start(); err != nil {
			serverErr <- fmt.Errorf("health server: %w", err)
		}
	}()

	// Register in etcd when service discovery is configured
	var registry *discovery.Registry
	instance := discovery.Instance{Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.HTTP.Port}
	regCtx, stopKeepAlive := context.WithCancel(ctx)
	defer stopKeepAlive()
	if len(cfg.Etcd.Endpoints) > 0 {
		registry, err = discovery.NewRegistry(&cfg.Etcd, logger)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := registry.Register(regCtx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		}
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Error("Server error", zap.Error(err))
	}

	if registry != nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := registry.Deregister(c, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		cancel()
		registry.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := sf.Shutdown(shutdownCtx); err != nil {
		logger.Error("Storefront shutdown failed", zap.Error(err))
	}
	feed.Close()
	ops.Stop()
	if err := notifier.Stop(5 * time.Second); err != nil {
		logger.Error("Notifier shutdown failed", zap.Error(err))
	}

	logger.Info("Storefront stopped")
}
