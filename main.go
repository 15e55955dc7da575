package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/di"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/worker"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/config"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/database"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/logger"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/redis"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(&logger.Config{
		Environment: cfg.App.Environment,
		Level:       logLevel(cfg),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting homestay booking engine",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	if cfg.OTel.Enabled {
		if _, err := telemetry.Init(ctx, &telemetry.Config{
			Enabled:        true,
			ServiceName:    cfg.OTel.ServiceName,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			CollectorAddr:  cfg.OTel.CollectorAddr,
		}); err != nil {
			log.Warn("Failed to init telemetry, continuing without tracing", zap.Error(err))
		}
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()
	log.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Host))

	redisClient, err := redis.NewClient(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))

	paymentGateway, err := buildGateway(cfg)
	if err != nil {
		log.Fatal("Failed to build payment gateway", zap.Error(err))
	}
	log.Info("Payment gateway ready", zap.String("provider", cfg.Gateway.Provider))

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		publisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			log.Warn("Failed to create Kafka publisher, notifications disabled", zap.Error(err))
			publisher = service.NewNoOpEventPublisher()
		} else {
			log.Info("Kafka notification publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		publisher = service.NewNoOpEventPublisher()
	}
	defer func() { _ = publisher.Close() }()

	container, err := di.NewContainer(ctx, &di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		PaymentGateway: paymentGateway,
		Publisher:      publisher,
		Currency:       cfg.Gateway.Currency,
		Availability:   &service.AvailabilityServiceConfig{HoldTTL: cfg.Booking.HoldTTL},
		Expiry: &worker.ExpiryWorkerConfig{
			ScanInterval: cfg.Booking.ExpiryScanInterval,
			BatchSize:    cfg.Booking.ExpiryBatchSize,
		},
	})
	if err != nil {
		log.Fatal("Failed to build container", zap.Error(err))
	}

	if err := container.ExpiryWorker.Start(ctx); err != nil {
		log.Fatal("Failed to start expiry worker", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	container.Router.Setup(engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	container.ExpiryWorker.Stop()

	if cfg.OTel.Enabled {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}

// buildGateway selects the payment gateway implementation by provider name.
func buildGateway(cfg *config.Config) (gateway.PaymentGateway, error) {
	switch cfg.Gateway.Provider {
	case "razorpay":
		return gateway.NewRazorpayGateway(&gateway.RazorpayGatewayConfig{
			KeyID:         cfg.Gateway.KeyID,
			KeySecret:     cfg.Gateway.KeySecret,
			WebhookSecret: cfg.Gateway.WebhookSecret,
			BaseURL:       cfg.Gateway.BaseURL,
		})
	case "stripe":
		return gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:     cfg.Gateway.KeySecret,
			WebhookSecret: cfg.Gateway.WebhookSecret,
		})
	case "mock":
		if cfg.IsProduction() {
			return nil, fmt.Errorf("mock gateway is not allowed in production")
		}
		return gateway.NewMockGateway(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider: %s", cfg.Gateway.Provider)
	}
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
