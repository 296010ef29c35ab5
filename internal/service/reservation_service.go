package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/internal/dto"
	"github.com/railops/train-reservation/internal/metrics"
	"github.com/railops/train-reservation/internal/repository"
	"github.com/railops/train-reservation/pkg/logger"
	"github.com/railops/train-reservation/pkg/retry"
	"github.com/railops/train-reservation/pkg/telemetry"
)

// ReservationService defines the interface for seat reservation business logic
type ReservationService interface {
	// PurchaseBatch issues tickets for a batch of passengers as an
	// all-or-nothing unit
	PurchaseBatch(ctx context.Context, accountID string, req *dto.PurchaseTicketsRequest) (*dto.PurchaseTicketsResponse, error)

	// Cancel cancels a ticket and returns its seat to the pool. Cancelling
	// an already-cancelled ticket is an idempotent success.
	Cancel(ctx context.Context, accountID, ticketID string) (*dto.CancelTicketResponse, error)

	// Availability returns the current per-class availability for a service
	Availability(ctx context.Context, serviceID string) (*dto.AvailabilityResponse, error)

	// GetTicket retrieves one ticket owned by the caller
	GetTicket(ctx context.Context, accountID, ticketID string) (*dto.TicketResponse, error)

	// ListTickets retrieves tickets for all of the caller's passengers
	ListTickets(ctx context.Context, accountID string, limit, offset int) (*dto.ListTicketsResponse, error)

	// AdjustCapacity grows tracked capacity for a fare class on a service
	AdjustCapacity(ctx context.Context, serviceID string, req *dto.AdjustCapacityRequest) (*dto.AdjustCapacityResponse, error)
}

// reservationService implements ReservationService
type reservationService struct {
	ledgerRepo     repository.LedgerRepository
	ticketRepo     repository.TicketRepository
	scheduleRepo   repository.ScheduleRepository
	vehicleRepo    repository.VehicleRepository
	passengerRepo  repository.PassengerRepository
	projector      OccupancyProjector
	eventPublisher EventPublisher
	maxBatchSize   int
	compensation   *retry.Retrier
}

// ReservationServiceConfig contains configuration for the reservation service
type ReservationServiceConfig struct {
	MaxBatchSize        int
	CompensationRetries int
}

// NewReservationService creates a new reservation service
func NewReservationService(
	ledgerRepo repository.LedgerRepository,
	ticketRepo repository.TicketRepository,
	scheduleRepo repository.ScheduleRepository,
	vehicleRepo repository.VehicleRepository,
	passengerRepo repository.PassengerRepository,
	projector OccupancyProjector,
	eventPublisher EventPublisher,
	cfg *ReservationServiceConfig,
) ReservationService {
	maxBatchSize := 10
	compensationRetries := 1
	if cfg != nil {
		if cfg.MaxBatchSize > 0 {
			maxBatchSize = cfg.MaxBatchSize
		}
		if cfg.CompensationRetries > 0 {
			compensationRetries = cfg.CompensationRetries
		}
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}

	compensationCfg := retry.DefaultConfig()
	compensationCfg.MaxRetries = compensationRetries
	compensationCfg.InitialInterval = 100 * time.Millisecond

	return &reservationService{
		ledgerRepo:     ledgerRepo,
		ticketRepo:     ticketRepo,
		scheduleRepo:   scheduleRepo,
		vehicleRepo:    vehicleRepo,
		passengerRepo:  passengerRepo,
		projector:      projector,
		eventPublisher: eventPublisher,
		maxBatchSize:   maxBatchSize,
		compensation:   retry.New(compensationCfg),
	}
}

// PurchaseBatch issues tickets for a batch of passengers. Capacity is taken
// from the atomic ledger first; ticket persistence failures trigger a
// compensating release so the ledger never holds seats unbacked by tickets.
func (s *reservationService) PurchaseBatch(ctx context.Context, accountID string, req *dto.PurchaseTicketsRequest) (*dto.PurchaseTicketsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.purchase_batch")
	defer span.End()
	started := time.Now()

	passengerIDs, err := validatePurchaseRequest(accountID, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(passengerIDs) > s.maxBatchSize {
		span.SetStatus(codes.Error, "batch too large")
		return nil, domain.ErrInvalidQuantity
	}
	class := domain.FareClass(req.Class)
	quantity := len(passengerIDs)

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("service_id", req.ServiceID),
		attribute.String("class", req.Class),
		attribute.Int("quantity", quantity),
	)

	// Ownership before anything touches the ledger.
	for _, passengerID := range passengerIDs {
		owned, err := s.passengerRepo.OwnedBy(ctx, passengerID, accountID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !owned {
			span.SetStatus(codes.Error, "passenger not owned")
			return nil, domain.ErrPassengerNotOwned
		}
	}

	svc, err := s.scheduleRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !svc.HasVehicle() {
		span.SetStatus(codes.Error, "vehicle not assigned")
		return nil, domain.ErrVehicleNotAssigned
	}

	if err := svc.ValidateTrip(req.OriginID, req.DestinationID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.ensureLedger(ctx, svc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	granted, err := s.ledgerRepo.Reserve(ctx, svc.ID, class, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !granted {
		metrics.RecordDenied(ctx, svc.ID, req.Class)
		span.SetStatus(codes.Error, "no seats available")
		return nil, domain.ErrNoSeatsAvailable
	}

	now := time.Now()
	tickets := make([]*domain.Ticket, 0, quantity)
	for _, passengerID := range passengerIDs {
		tickets = append(tickets, &domain.Ticket{
			ID:            uuid.New().String(),
			Code:          generateTicketCode(),
			ServiceID:     svc.ID,
			PassengerID:   passengerID,
			OriginID:      req.OriginID,
			DestinationID: req.DestinationID,
			Class:         class,
			Price:         svc.Fare,
			Status:        domain.TicketStatusPurchased,
			PurchasedAt:   now,
			UpdatedAt:     now,
		})
	}

	if err := s.ticketRepo.CreateBatch(ctx, tickets); err != nil {
		// Seats are reserved but unbacked; give them back before surfacing
		// the original failure.
		s.compensate(ctx, svc.ID, class, quantity)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, ticket := range tickets {
		_ = s.eventPublisher.PublishTicketIssued(ctx, ticket)
	}

	// Best-effort projection refresh; the purchase stands even if it fails.
	if refreshErr := s.projector.Refresh(ctx, svc.ID); refreshErr != nil {
		logger.Get().Warn("occupancy refresh failed after purchase",
			zap.String("service_id", svc.ID),
			zap.Error(refreshErr),
		)
	}

	metrics.RecordIssued(ctx, svc.ID, req.Class, quantity)
	metrics.RecordPurchaseDuration(ctx, svc.ID, time.Since(started).Seconds())

	span.AddEvent("tickets_issued", trace.WithAttributes(
		attribute.String("service_id", svc.ID),
		attribute.Int("quantity", quantity),
	))
	span.SetStatus(codes.Ok, "")

	return &dto.PurchaseTicketsResponse{
		ServiceID:  svc.ID,
		Class:      req.Class,
		TotalPrice: svc.Fare * float64(quantity),
		Tickets:    dto.TicketsFromDomain(tickets),
	}, nil
}

// Cancel flips a ticket to CANCELLED and releases its seat. Re-cancelling is
// an idempotent success and never double-releases.
func (s *reservationService) Cancel(ctx context.Context, accountID, ticketID string) (*dto.CancelTicketResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.cancel")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("ticket_id", ticketID),
	)

	if ticketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}
	if accountID == "" {
		span.SetStatus(codes.Error, "invalid account_id")
		return nil, domain.ErrInvalidAccountID
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	owned, err := s.passengerRepo.OwnedBy(ctx, ticket.PassengerID, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !owned {
		span.SetStatus(codes.Error, "ticket not owned")
		return nil, domain.ErrTicketNotOwned
	}

	if ticket.IsCancelled() {
		span.SetStatus(codes.Ok, "already cancelled")
		return &dto.CancelTicketResponse{
			TicketID:    ticket.ID,
			Status:      ticket.Status.String(),
			CancelledAt: ticket.UpdatedAt,
		}, nil
	}
	if ticket.IsUsed() {
		span.SetStatus(codes.Error, "ticket already used")
		return nil, domain.ErrTicketAlreadyUsed
	}

	if err := s.ticketRepo.UpdateStatus(ctx, ticket.ID, domain.TicketStatusCancelled); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	ticket.Status = domain.TicketStatusCancelled
	ticket.UpdatedAt = time.Now()

	if err := s.ledgerRepo.Release(ctx, ticket.ServiceID, ticket.Class, 1); err != nil {
		// Status is already flipped; a stuck release is a lesser harm than
		// blocking cancellation.
		logger.Get().Error("seat release failed after cancellation",
			zap.String("ticket_id", ticket.ID),
			zap.String("service_id", ticket.ServiceID),
			zap.Error(err),
		)
	}

	_ = s.eventPublisher.PublishTicketCancelled(ctx, ticket)

	if refreshErr := s.projector.Refresh(ctx, ticket.ServiceID); refreshErr != nil {
		logger.Get().Warn("occupancy refresh failed after cancellation",
			zap.String("service_id", ticket.ServiceID),
			zap.Error(refreshErr),
		)
	}

	metrics.RecordCancelled(ctx, ticket.ServiceID, string(ticket.Class))
	span.SetStatus(codes.Ok, "")

	return &dto.CancelTicketResponse{
		TicketID:    ticket.ID,
		Status:      ticket.Status.String(),
		CancelledAt: ticket.UpdatedAt,
	}, nil
}

// Availability returns per-class availability from the ledger. Pure read.
func (s *reservationService) Availability(ctx context.Context, serviceID string) (*dto.AvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.availability")
	defer span.End()

	span.SetAttributes(attribute.String("service_id", serviceID))

	if serviceID == "" {
		span.SetStatus(codes.Error, "invalid service_id")
		return nil, domain.ErrInvalidServiceID
	}

	snapshot, err := s.ledgerRepo.Snapshot(ctx, serviceID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.AvailabilityFromSnapshot(snapshot), nil
}

// GetTicket retrieves one ticket owned by the caller
func (s *reservationService) GetTicket(ctx context.Context, accountID, ticketID string) (*dto.TicketResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.get_ticket")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.String("ticket_id", ticketID),
	)

	if ticketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	owned, err := s.passengerRepo.OwnedBy(ctx, ticket.PassengerID, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !owned {
		span.SetStatus(codes.Error, "ticket not owned")
		return nil, domain.ErrTicketNotOwned
	}

	span.SetStatus(codes.Ok, "")
	return dto.TicketFromDomain(ticket), nil
}

// ListTickets retrieves tickets across all of the caller's passengers
func (s *reservationService) ListTickets(ctx context.Context, accountID string, limit, offset int) (*dto.ListTicketsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.list_tickets")
	defer span.End()

	span.SetAttributes(
		attribute.String("account_id", accountID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	if accountID == "" {
		span.SetStatus(codes.Error, "invalid account_id")
		return nil, domain.ErrInvalidAccountID
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	passengerIDs, err := s.passengerRepo.ListIDsByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tickets, err := s.ticketRepo.ListByPassengers(ctx, passengerIDs, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(tickets)))
	span.SetStatus(codes.Ok, "")
	return &dto.ListTicketsResponse{
		Tickets: dto.TicketsFromDomain(tickets),
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// AdjustCapacity grows the tracked capacity for a class
func (s *reservationService) AdjustCapacity(ctx context.Context, serviceID string, req *dto.AdjustCapacityRequest) (*dto.AdjustCapacityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.adjust_capacity")
	defer span.End()

	if serviceID == "" {
		span.SetStatus(codes.Error, "invalid service_id")
		return nil, domain.ErrInvalidServiceID
	}
	if req == nil || req.Class == "" {
		span.SetStatus(codes.Error, "invalid class")
		return nil, domain.ErrInvalidFareClass
	}
	if req.Delta <= 0 {
		span.SetStatus(codes.Error, "invalid delta")
		return nil, domain.ErrInvalidCapacityDelta
	}

	span.SetAttributes(
		attribute.String("service_id", serviceID),
		attribute.String("class", req.Class),
		attribute.Int("delta", req.Delta),
	)

	class := domain.FareClass(req.Class)
	if err := s.ledgerRepo.AdjustCapacity(ctx, serviceID, class, req.Delta); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	snapshot, err := s.ledgerRepo.Snapshot(ctx, serviceID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	counters := snapshot.Classes[class]

	span.SetStatus(codes.Ok, "")
	return &dto.AdjustCapacityResponse{
		ServiceID: serviceID,
		Class:     req.Class,
		Capacity:  counters.Capacity,
		Sold:      counters.Sold,
	}, nil
}

// ensureLedger creates the capacity ledger on first reservation, seeding
// per-class capacities from the assigned vehicle's active cars.
func (s *reservationService) ensureLedger(ctx context.Context, svc *domain.ScheduledService) error {
	vehicle, err := s.vehicleRepo.GetByID(ctx, svc.VehicleID)
	if err != nil {
		return err
	}

	capacities := vehicle.CapacityByClass()
	if len(capacities) == 0 && svc.TotalCapacity > 0 {
		// Vehicle without class-tagged cars; fall back to the service's
		// declared total capacity under the default class.
		capacities = map[domain.FareClass]int{domain.FareClassTurista: svc.TotalCapacity}
	}

	return s.ledgerRepo.Ensure(ctx, svc.ID, capacities)
}

// compensate returns reserved seats after a persistence failure. Retries
// once then logs; the caller still surfaces its original error.
func (s *reservationService) compensate(ctx context.Context, serviceID string, class domain.FareClass, quantity int) {
	result := s.compensation.Do(ctx, func(ctx context.Context) error {
		return s.ledgerRepo.Release(ctx, serviceID, class, quantity)
	})

	metrics.RecordCompensation(ctx, serviceID, result.Err != nil)
	if result.Err != nil {
		logger.Get().Error("compensating release failed, seats may be stranded",
			zap.String("service_id", serviceID),
			zap.String("class", string(class)),
			zap.Int("quantity", quantity),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err),
		)
	}
}

// validatePurchaseRequest checks required fields and returns the de-duplicated
// passenger set. Duplicate passenger ids count as one seat, not two.
func validatePurchaseRequest(accountID string, req *dto.PurchaseTicketsRequest) ([]string, error) {
	if accountID == "" {
		return nil, domain.ErrInvalidAccountID
	}
	if req == nil || strings.TrimSpace(req.ServiceID) == "" {
		return nil, domain.ErrInvalidServiceID
	}
	if strings.TrimSpace(req.OriginID) == "" || strings.TrimSpace(req.DestinationID) == "" {
		return nil, domain.ErrInvalidStationID
	}
	if strings.TrimSpace(req.Class) == "" {
		return nil, domain.ErrInvalidFareClass
	}
	if len(req.PassengerIDs) == 0 {
		return nil, domain.ErrInvalidPassengers
	}

	seen := make(map[string]struct{}, len(req.PassengerIDs))
	unique := make([]string, 0, len(req.PassengerIDs))
	for _, id := range req.PassengerIDs {
		if strings.TrimSpace(id) == "" {
			return nil, domain.ErrInvalidPassengers
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, nil
}

// generateTicketCode generates a human-facing ticket code
func generateTicketCode() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "TKT-" + uuid.New().String()[:8]
	}
	return "TKT-" + strings.ToUpper(hex.EncodeToString(bytes))
}
