package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/internal/service"
	"github.com/railops/train-reservation/pkg/logger"
)

// OccupancyWorkerConfig contains configuration for the occupancy worker
type OccupancyWorkerConfig struct {
	// ScanInterval is the interval between reconcile sweeps
	ScanInterval time.Duration
	// BatchSize is the number of services to refresh in each sweep
	BatchSize int
}

// DefaultOccupancyWorkerConfig returns default configuration
func DefaultOccupancyWorkerConfig() *OccupancyWorkerConfig {
	return &OccupancyWorkerConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    100,
	}
}

// OccupancyWorker periodically recomputes the denormalized occupancy
// fields of services still open for sale. Purchase and cancel already
// refresh the affected service inline; this sweep catches services
// whose inline refresh failed or was skipped.
type OccupancyWorker struct {
	scheduleRepo repository.ScheduleRepository
	projector    service.OccupancyProjector
	config       *OccupancyWorkerConfig
	log          *logger.Logger
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool

	// Stats
	totalRefreshed int64
	totalFailed    int64
	lastScanTime   time.Time
	lastScanCount  int
}

// NewOccupancyWorker creates a new occupancy worker
func NewOccupancyWorker(
	scheduleRepo repository.ScheduleRepository,
	projector service.OccupancyProjector,
	config *OccupancyWorkerConfig,
) *OccupancyWorker {
	if config == nil {
		config = DefaultOccupancyWorkerConfig()
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultOccupancyWorkerConfig().ScanInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOccupancyWorkerConfig().BatchSize
	}

	return &OccupancyWorker{
		scheduleRepo: scheduleRepo,
		projector:    projector,
		config:       config,
		log:          logger.Get(),
		stopCh:       make(chan struct{}),
	}
}

// Start starts the occupancy worker
func (w *OccupancyWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("occupancy worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting occupancy worker")

	w.wg.Add(1)
	go w.scanLoop(ctx)

	return nil
}

// Stop stops the occupancy worker
func (w *OccupancyWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping occupancy worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Occupancy worker stopped")
}

// scanLoop runs reconcile sweeps on the configured interval
func (w *OccupancyWorker) scanLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

// reconcile refreshes occupancy for one batch of active services
func (w *OccupancyWorker) reconcile(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	ids, err := w.scheduleRepo.ListActiveIDs(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("failed to list active services", zap.Error(err))
		return
	}

	if len(ids) == 0 {
		return
	}

	var failed int64
	for _, id := range ids {
		if err := w.projector.Refresh(ctx, id); err != nil {
			w.log.Warn("failed to refresh occupancy",
				zap.String("service_id", id),
				zap.Error(err),
			)
			failed++
			continue
		}
	}

	w.mu.Lock()
	w.lastScanCount = len(ids)
	w.totalRefreshed += int64(len(ids)) - failed
	w.totalFailed += failed
	w.mu.Unlock()

	w.log.Debug("occupancy sweep finished",
		zap.Int("services", len(ids)),
		zap.Int64("failed", failed),
	)
}

// GetStats returns worker statistics
func (w *OccupancyWorker) GetStats() *OccupancyWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &OccupancyWorkerStats{
		IsRunning:      w.running,
		TotalRefreshed: w.totalRefreshed,
		TotalFailed:    w.totalFailed,
		LastScanTime:   w.lastScanTime,
		LastScanCount:  w.lastScanCount,
	}
}

// OccupancyWorkerStats contains worker statistics
type OccupancyWorkerStats struct {
	IsRunning      bool      `json:"is_running"`
	TotalRefreshed int64     `json:"total_refreshed"`
	TotalFailed    int64     `json:"total_failed"`
	LastScanTime   time.Time `json:"last_scan_time"`
	LastScanCount  int       `json:"last_scan_count"`
}
