package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/railops/train-reservation/internal/di"
	"github.com/railops/train-reservation/internal/metrics"
	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/internal/worker"
	"github.com/railops/train-reservation/pkg/config"
	"github.com/railops/train-reservation/pkg/database"
	"github.com/railops/train-reservation/pkg/logger"
	"github.com/railops/train-reservation/pkg/middleware"
	pkgredis "github.com/railops/train-reservation/pkg/redis"
	"github.com/railops/train-reservation/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	logCfg := &logger.Config{
		Level:       logLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.App.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting reservation service...")

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry initialization failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLog.Warn(fmt.Sprintf("Telemetry shutdown failed: %v", err))
		}
	}()

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics initialization failed: %v", err))
	}

	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.DBName
	dbCfg.SSLMode = cfg.Database.SSLMode
	dbCfg.EnableTracing = cfg.OTel.Enabled
	if cfg.Database.MaxConns > 0 {
		dbCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		dbCfg.MinConns = cfg.Database.MinConns
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	redisCfg := pkgredis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		redisCfg.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info(fmt.Sprintf("Redis connected (pool: %d)", redisCfg.PoolSize))

	if err := repository.PreloadLedgerScripts(ctx, redisClient); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
	} else {
		appLog.Info("Lua scripts pre-loaded into Redis")
	}

	var eventPublisher service.EventPublisher
	eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		eventPublisher = service.NewNoOpEventPublisher()
	} else {
		appLog.Info("Kafka event publisher connected")
	}
	defer eventPublisher.Close()

	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		EventPublisher: eventPublisher,
		ServiceConfig: &service.ReservationServiceConfig{
			MaxBatchSize:        cfg.Reservation.MaxBatchSize,
			CompensationRetries: cfg.Reservation.CompensationRetries,
		},
	})

	// Background reconcile sweep for the occupancy projection
	occupancyWorker := worker.NewOccupancyWorker(
		container.ScheduleRepo,
		container.Projector,
		&worker.OccupancyWorkerConfig{
			ScanInterval: cfg.Reservation.ProjectorInterval,
			BatchSize:    100,
		},
	)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	if err := occupancyWorker.Start(workerCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start occupancy worker: %v", err))
	}
	defer occupancyWorker.Stop()

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware())

	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	authCfg := &middleware.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}
	idempotencyCfg := middleware.DefaultIdempotencyConfig(redisClient.Client())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authCfg))
	{
		tickets := v1.Group("/tickets")
		{
			tickets.POST("", middleware.Idempotency(idempotencyCfg), container.TicketHandler.Purchase)
			tickets.POST("/:id/cancel", middleware.Idempotency(idempotencyCfg), container.TicketHandler.Cancel)
			tickets.GET("/:id", container.TicketHandler.Get)
			tickets.GET("", container.TicketHandler.List)
		}

		v1.GET("/services/:id/availability", container.TicketHandler.Availability)

		admin := v1.Group("/admin")
		{
			admin.POST("/services/:id/capacity", container.AdminHandler.AdjustCapacity)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Reservation service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
