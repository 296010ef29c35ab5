package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/internal/repository"
)

func TestProjectorRefresh_FromLedger(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedgerRepository()
	if err := ledger.Ensure(ctx, "svc-1", map[domain.FareClass]int{
		domain.FareClassTurista:    10,
		domain.FareClassPreferente: 10,
	}); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if granted, _ := ledger.Reserve(ctx, "svc-1", domain.FareClassTurista, 5); !granted {
		t.Fatal("setup reservation should succeed")
	}

	var written *domain.Occupancy
	scheduleRepo := &MockScheduleRepository{
		UpdateOccupancyFunc: func(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
			written = occupancy
			return nil
		},
	}

	projector := NewOccupancyProjector(ledger, &MockTicketRepository{}, scheduleRepo)
	if err := projector.Refresh(ctx, "svc-1"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if written == nil {
		t.Fatal("expected occupancy to be written")
	}
	if written.Sold != 5 || written.Capacity != 20 {
		t.Errorf("expected sold=5 capacity=20, got %+v", written)
	}
	if written.Pct != 25.0 {
		t.Errorf("expected pct=25, got %v", written.Pct)
	}
}

func TestProjectorRefresh_FallsBackToTicketCount(t *testing.T) {
	ctx := context.Background()

	var written *domain.Occupancy
	scheduleRepo := &MockScheduleRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.ScheduledService, error) {
			svc := testScheduledService()
			svc.TotalCapacity = 8
			return svc, nil
		},
		UpdateOccupancyFunc: func(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
			written = occupancy
			return nil
		},
	}
	ticketRepo := &MockTicketRepository{
		CountActiveByServiceFunc: func(ctx context.Context, serviceID string) (int, error) {
			return 2, nil
		},
	}

	projector := NewOccupancyProjector(repository.NewMemoryLedgerRepository(), ticketRepo, scheduleRepo)
	if err := projector.Refresh(ctx, "svc-1"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if written == nil || written.Sold != 2 || written.Capacity != 8 {
		t.Fatalf("expected sold=2 capacity=8 from ticket fallback, got %+v", written)
	}
}

func TestProjectorRefresh_PropagatesWriteFailure(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedgerRepository()
	_ = ledger.Ensure(ctx, "svc-1", map[domain.FareClass]int{domain.FareClassTurista: 2})

	writeErr := errors.New("update failed")
	scheduleRepo := &MockScheduleRepository{
		UpdateOccupancyFunc: func(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
			return writeErr
		},
	}

	projector := NewOccupancyProjector(ledger, &MockTicketRepository{}, scheduleRepo)
	if err := projector.Refresh(ctx, "svc-1"); !errors.Is(err, writeErr) {
		t.Fatalf("expected write failure to surface, got %v", err)
	}
}

func TestProjectorRefresh_ConcurrentCallsAreSafe(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedgerRepository()
	_ = ledger.Ensure(ctx, "svc-1", map[domain.FareClass]int{domain.FareClassTurista: 100})

	var mu sync.Mutex
	writes := 0
	scheduleRepo := &MockScheduleRepository{
		UpdateOccupancyFunc: func(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
			mu.Lock()
			writes++
			mu.Unlock()
			return nil
		},
	}

	projector := NewOccupancyProjector(ledger, &MockTicketRepository{}, scheduleRepo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := projector.Refresh(ctx, "svc-1"); err != nil {
				t.Errorf("Refresh failed: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if writes == 0 || writes > 20 {
		t.Fatalf("expected between 1 and 20 writes, got %d", writes)
	}
}
