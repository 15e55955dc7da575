package di

import (
	"context"
	"fmt"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/handler"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/worker"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/database"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/redis"
)

// Container holds all dependencies of the engine.
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Gateways
	PaymentGateway gateway.PaymentGateway

	// Repositories
	BookingRepo  repository.BookingRepository
	CalendarRepo repository.CalendarRepository
	PriceRepo    repository.PriceRepository
	RoomRepo     repository.RoomRepository
	EventRepo    repository.PaymentEventRepository

	// Services
	Availability service.AvailabilityService
	Pricing      service.PricingService
	Booking      service.BookingService
	Publisher    service.EventPublisher

	// Workers
	ExpiryWorker *worker.ExpiryWorker

	// HTTP
	Router *handler.Router
}

// ContainerConfig contains configuration for building the container.
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	PaymentGateway gateway.PaymentGateway
	Publisher      service.EventPublisher
	Currency       string

	Availability *service.AvailabilityServiceConfig
	Expiry       *worker.ExpiryWorkerConfig
}

// NewContainer wires the engine's repositories, services, worker and HTTP
// surface. The database, Redis client and gateway must already be connected.
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("container config is required")
	}
	if cfg.DB == nil || cfg.Redis == nil {
		return nil, fmt.Errorf("database and redis connections are required")
	}
	if cfg.PaymentGateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		PaymentGateway: cfg.PaymentGateway,
		Publisher:      cfg.Publisher,
	}
	if c.Publisher == nil {
		c.Publisher = service.NewNoOpEventPublisher()
	}

	pool := cfg.DB.Pool()
	c.BookingRepo = repository.NewPostgresBookingRepository(pool)
	c.PriceRepo = repository.NewPostgresPriceRepository(pool)
	c.RoomRepo = repository.NewPostgresRoomRepository(pool)
	c.EventRepo = repository.NewPostgresPaymentEventRepository(pool)
	calendarRepo := repository.NewRedisCalendarRepository(cfg.Redis)
	if err := calendarRepo.LoadScripts(ctx); err != nil {
		return nil, fmt.Errorf("failed to load calendar scripts: %w", err)
	}
	c.CalendarRepo = calendarRepo

	c.Availability = service.NewAvailabilityService(c.CalendarRepo, c.RoomRepo, cfg.Availability)
	c.Pricing = service.NewPricingService(c.PriceRepo, c.RoomRepo)

	booking, err := service.NewBookingService(&service.BookingServiceConfig{
		BookingRepo:  c.BookingRepo,
		EventRepo:    c.EventRepo,
		RoomRepo:     c.RoomRepo,
		Availability: c.Availability,
		Pricing:      c.Pricing,
		Gateway:      c.PaymentGateway,
		Publisher:    c.Publisher,
		Currency:     cfg.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build booking service: %w", err)
	}
	c.Booking = booking

	c.ExpiryWorker = worker.NewExpiryWorker(c.Booking, cfg.Expiry)

	c.Router = handler.NewRouter(
		handler.NewBookingHandler(c.Booking),
		handler.NewCalendarHandler(c.Availability, c.Pricing),
		handler.NewWebhookHandler(c.Booking, c.PaymentGateway),
	)

	return c, nil
}
