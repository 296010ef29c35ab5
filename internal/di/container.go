package di

import (
	"github.com/railops/train-reservation/internal/handler"
	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/pkg/database"
	"github.com/railops/train-reservation/pkg/redis"
)

// Container holds all dependencies for the reservation service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	LedgerRepo    repository.LedgerRepository
	TicketRepo    repository.TicketRepository
	ScheduleRepo  repository.ScheduleRepository
	VehicleRepo   repository.VehicleRepository
	PassengerRepo repository.PassengerRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	Projector          service.OccupancyProjector
	ReservationService service.ReservationService

	// Handlers
	HealthHandler *handler.HealthHandler
	TicketHandler *handler.TicketHandler
	AdminHandler  *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	LedgerRepo     repository.LedgerRepository
	EventPublisher service.EventPublisher
	ServiceConfig  *service.ReservationServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		LedgerRepo:     cfg.LedgerRepo,
		EventPublisher: cfg.EventPublisher,
	}

	pool := cfg.DB.Pool()
	c.TicketRepo = repository.NewPostgresTicketRepository(pool)
	c.ScheduleRepo = repository.NewPostgresScheduleRepository(pool)
	c.VehicleRepo = repository.NewPostgresVehicleRepository(pool)
	c.PassengerRepo = repository.NewPostgresPassengerRepository(pool)

	if c.LedgerRepo == nil {
		c.LedgerRepo = repository.NewRedisLedgerRepository(cfg.Redis)
	}

	// Initialize services
	c.Projector = service.NewOccupancyProjector(c.LedgerRepo, c.TicketRepo, c.ScheduleRepo)
	c.ReservationService = service.NewReservationService(
		c.LedgerRepo,
		c.TicketRepo,
		c.ScheduleRepo,
		c.VehicleRepo,
		c.PassengerRepo,
		c.Projector,
		c.EventPublisher,
		cfg.ServiceConfig,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(map[string]handler.HealthChecker{
		"postgres": c.DB,
		"redis":    c.Redis,
	})
	c.TicketHandler = handler.NewTicketHandler(c.ReservationService)
	c.AdminHandler = handler.NewAdminHandler(c.ReservationService)

	return c
}
