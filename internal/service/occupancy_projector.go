package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/internal/metrics"
	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// OccupancyProjector maintains the denormalized occupancy view on scheduled
// services. It is a read optimization only; admission control never consults
// the projection.
type OccupancyProjector interface {
	// Refresh recomputes and persists occupancy for one service. Safe to
	// call concurrently and repeatedly; last writer wins.
	Refresh(ctx context.Context, serviceID string) error
}

// occupancyProjector implements OccupancyProjector
type occupancyProjector struct {
	ledgerRepo   repository.LedgerRepository
	ticketRepo   repository.TicketRepository
	scheduleRepo repository.ScheduleRepository
	group        singleflight.Group
}

// NewOccupancyProjector creates a new occupancy projector
func NewOccupancyProjector(
	ledgerRepo repository.LedgerRepository,
	ticketRepo repository.TicketRepository,
	scheduleRepo repository.ScheduleRepository,
) OccupancyProjector {
	return &occupancyProjector{
		ledgerRepo:   ledgerRepo,
		ticketRepo:   ticketRepo,
		scheduleRepo: scheduleRepo,
	}
}

// Refresh recomputes the occupancy projection for a service. Concurrent
// refreshes of the same service are collapsed into one computation.
func (p *occupancyProjector) Refresh(ctx context.Context, serviceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.projector.refresh")
	defer span.End()

	span.SetAttributes(attribute.String("service_id", serviceID))

	_, err, _ := p.group.Do(serviceID, func() (interface{}, error) {
		return nil, p.refresh(ctx, serviceID)
	})

	metrics.RecordProjection(ctx, serviceID, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *occupancyProjector) refresh(ctx context.Context, serviceID string) error {
	sold, capacity, err := p.currentCounts(ctx, serviceID)
	if err != nil {
		return err
	}

	pct := 0.0
	if capacity > 0 {
		pct = float64(sold) / float64(capacity) * 100
	}

	occupancy := &domain.Occupancy{
		ServiceID: serviceID,
		Sold:      sold,
		Capacity:  capacity,
		Pct:       pct,
	}
	if err := p.scheduleRepo.UpdateOccupancy(ctx, serviceID, occupancy); err != nil {
		return fmt.Errorf("failed to persist occupancy projection: %w", err)
	}
	return nil
}

// currentCounts reads sold/capacity from the ledger. When no ledger exists
// yet (nothing sold), it falls back to counting non-cancelled tickets against
// the service's declared total capacity.
func (p *occupancyProjector) currentCounts(ctx context.Context, serviceID string) (int, int, error) {
	snapshot, err := p.ledgerRepo.Snapshot(ctx, serviceID)
	if err == nil {
		return snapshot.TotalSold(), snapshot.TotalCapacity(), nil
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		return 0, 0, fmt.Errorf("failed to read ledger: %w", err)
	}

	sold, err := p.ticketRepo.CountActiveByService(ctx, serviceID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	svc, err := p.scheduleRepo.GetByID(ctx, serviceID)
	if err != nil {
		return 0, 0, err
	}
	return sold, svc.TotalCapacity, nil
}
