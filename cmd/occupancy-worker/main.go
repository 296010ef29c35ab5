package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/internal/worker"
	"github.com/railops/train-reservation/pkg/config"
	"github.com/railops/train-reservation/pkg/database"
	"github.com/railops/train-reservation/pkg/logger"
	pkgredis "github.com/railops/train-reservation/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	logCfg := &logger.Config{
		Level:       logLevel,
		ServiceName: "occupancy-worker",
		Development: cfg.App.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting occupancy worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.DBName
	dbCfg.SSLMode = cfg.Database.SSLMode
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	redisCfg := pkgredis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	pool := db.Pool()
	ledgerRepo := repository.NewRedisLedgerRepository(redisClient)
	ticketRepo := repository.NewPostgresTicketRepository(pool)
	scheduleRepo := repository.NewPostgresScheduleRepository(pool)
	projector := service.NewOccupancyProjector(ledgerRepo, ticketRepo, scheduleRepo)

	occupancyWorker := worker.NewOccupancyWorker(scheduleRepo, projector, &worker.OccupancyWorkerConfig{
		ScanInterval: cfg.Reservation.ProjectorInterval,
		BatchSize:    100,
	})

	if err := occupancyWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start occupancy worker: %v", err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down occupancy worker...")
	occupancyWorker.Stop()
	appLog.Info("Occupancy worker stopped")
}
