package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/internal/dto"
	"github.com/railops/train-reservation/internal/repository"
)

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	CreateBatchFunc          func(ctx context.Context, tickets []*domain.Ticket) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateStatusFunc         func(ctx context.Context, id string, status domain.TicketStatus) error
	ListByPassengersFunc     func(ctx context.Context, passengerIDs []string, limit, offset int) ([]*domain.Ticket, error)
	CountActiveByServiceFunc func(ctx context.Context, serviceID string) (int, error)
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tickets)
	}
	return nil
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockTicketRepository) ListByPassengers(ctx context.Context, passengerIDs []string, limit, offset int) ([]*domain.Ticket, error) {
	if m.ListByPassengersFunc != nil {
		return m.ListByPassengersFunc(ctx, passengerIDs, limit, offset)
	}
	return []*domain.Ticket{}, nil
}

func (m *MockTicketRepository) CountActiveByService(ctx context.Context, serviceID string) (int, error) {
	if m.CountActiveByServiceFunc != nil {
		return m.CountActiveByServiceFunc(ctx, serviceID)
	}
	return 0, nil
}

// MockScheduleRepository is a mock implementation of ScheduleRepository
type MockScheduleRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*domain.ScheduledService, error)
	UpdateOccupancyFunc func(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error
	ListActiveIDsFunc   func(ctx context.Context, limit int) ([]string, error)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledService, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrServiceNotFound
}

func (m *MockScheduleRepository) UpdateOccupancy(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error {
	if m.UpdateOccupancyFunc != nil {
		return m.UpdateOccupancyFunc(ctx, serviceID, occupancy)
	}
	return nil
}

func (m *MockScheduleRepository) ListActiveIDs(ctx context.Context, limit int) ([]string, error) {
	if m.ListActiveIDsFunc != nil {
		return m.ListActiveIDsFunc(ctx, limit)
	}
	return nil, nil
}

// MockVehicleRepository is a mock implementation of VehicleRepository
type MockVehicleRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.Vehicle, error)
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrVehicleNotFound
}

// MockPassengerRepository is a mock implementation of PassengerRepository
type MockPassengerRepository struct {
	OwnedByFunc          func(ctx context.Context, passengerID, accountID string) (bool, error)
	ListIDsByAccountFunc func(ctx context.Context, accountID string) ([]string, error)
}

func (m *MockPassengerRepository) OwnedBy(ctx context.Context, passengerID, accountID string) (bool, error) {
	if m.OwnedByFunc != nil {
		return m.OwnedByFunc(ctx, passengerID, accountID)
	}
	return true, nil
}

func (m *MockPassengerRepository) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	if m.ListIDsByAccountFunc != nil {
		return m.ListIDsByAccountFunc(ctx, accountID)
	}
	return nil, nil
}

// MockProjector is a mock implementation of OccupancyProjector
type MockProjector struct {
	RefreshFunc func(ctx context.Context, serviceID string) error
}

func (m *MockProjector) Refresh(ctx context.Context, serviceID string) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, serviceID)
	}
	return nil
}

// recordingPublisher counts published events
type recordingPublisher struct {
	mu        sync.Mutex
	issued    int
	cancelled int
}

func (p *recordingPublisher) PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return nil
}

func (p *recordingPublisher) PublishTicketCancelled(ctx context.Context, ticket *domain.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled++
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testScheduledService() *domain.ScheduledService {
	return &domain.ScheduledService{
		ID:        "svc-1",
		RouteID:   "route-1",
		VehicleID: "veh-1",
		Stops: []domain.Stop{
			{StationID: "A", Order: 0},
			{StationID: "B", Order: 1},
			{StationID: "C", Order: 2},
		},
		Fare:          45.50,
		TotalCapacity: 2,
		DepartureAt:   time.Now().Add(24 * time.Hour),
		Status:        "SCHEDULED",
	}
}

func testVehicle() *domain.Vehicle {
	return &domain.Vehicle{
		ID:   "veh-1",
		Name: "S-102-01",
		Cars: []domain.Car{
			{Class: domain.FareClassTurista, SeatCapacity: 2, Active: true},
		},
	}
}

type serviceFixture struct {
	ledger       repository.LedgerRepository
	ticketRepo   *MockTicketRepository
	scheduleRepo *MockScheduleRepository
	vehicleRepo  *MockVehicleRepository
	passengers   *MockPassengerRepository
	publisher    *recordingPublisher
	svc          ReservationService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		ledger:       repository.NewMemoryLedgerRepository(),
		ticketRepo:   &MockTicketRepository{},
		scheduleRepo: &MockScheduleRepository{},
		vehicleRepo:  &MockVehicleRepository{},
		passengers:   &MockPassengerRepository{},
		publisher:    &recordingPublisher{},
	}
	f.scheduleRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.ScheduledService, error) {
		if id == "svc-1" {
			return testScheduledService(), nil
		}
		return nil, domain.ErrServiceNotFound
	}
	f.vehicleRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Vehicle, error) {
		if id == "veh-1" {
			return testVehicle(), nil
		}
		return nil, domain.ErrVehicleNotFound
	}
	f.svc = NewReservationService(
		f.ledger, f.ticketRepo, f.scheduleRepo, f.vehicleRepo, f.passengers,
		&MockProjector{}, f.publisher, nil,
	)
	return f
}

func purchaseRequest(passengers ...string) *dto.PurchaseTicketsRequest {
	return &dto.PurchaseTicketsRequest{
		ServiceID:     "svc-1",
		OriginID:      "A",
		DestinationID: "C",
		Class:         "TURISTA",
		PassengerIDs:  passengers,
	}
}

func TestPurchaseBatch_Validation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID string
		req       *dto.PurchaseTicketsRequest
		wantErr   error
	}{
		{
			name:      "missing account",
			accountID: "",
			req:       purchaseRequest("p1"),
			wantErr:   domain.ErrInvalidAccountID,
		},
		{
			name:      "nil request",
			accountID: "acc-1",
			req:       nil,
			wantErr:   domain.ErrInvalidServiceID,
		},
		{
			name:      "blank service id",
			accountID: "acc-1",
			req: &dto.PurchaseTicketsRequest{
				OriginID: "A", DestinationID: "C", Class: "TURISTA", PassengerIDs: []string{"p1"},
			},
			wantErr: domain.ErrInvalidServiceID,
		},
		{
			name:      "blank origin",
			accountID: "acc-1",
			req: &dto.PurchaseTicketsRequest{
				ServiceID: "svc-1", DestinationID: "C", Class: "TURISTA", PassengerIDs: []string{"p1"},
			},
			wantErr: domain.ErrInvalidStationID,
		},
		{
			name:      "blank class",
			accountID: "acc-1",
			req: &dto.PurchaseTicketsRequest{
				ServiceID: "svc-1", OriginID: "A", DestinationID: "C", PassengerIDs: []string{"p1"},
			},
			wantErr: domain.ErrInvalidFareClass,
		},
		{
			name:      "empty passengers",
			accountID: "acc-1",
			req:       purchaseRequest(),
			wantErr:   domain.ErrInvalidPassengers,
		},
		{
			name:      "blank passenger id",
			accountID: "acc-1",
			req:       purchaseRequest("p1", " "),
			wantErr:   domain.ErrInvalidPassengers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PurchaseBatch(ctx, tt.accountID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPurchaseBatch_Success(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	var persisted []*domain.Ticket
	f.ticketRepo.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) error {
		persisted = tickets
		return nil
	}

	resp, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2"))
	if err != nil {
		t.Fatalf("PurchaseBatch failed: %v", err)
	}

	if len(resp.Tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(resp.Tickets))
	}
	if resp.TotalPrice != 91.0 {
		t.Errorf("expected total price 91.0, got %v", resp.TotalPrice)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted tickets, got %d", len(persisted))
	}
	for _, ticket := range persisted {
		if ticket.Status != domain.TicketStatusPurchased {
			t.Errorf("expected status PURCHASED, got %s", ticket.Status)
		}
		if ticket.Price != 45.50 {
			t.Errorf("expected fare copied from service, got %v", ticket.Price)
		}
		if ticket.Code == "" || ticket.ID == "" {
			t.Error("expected generated id and code")
		}
	}
	if f.publisher.issued != 2 {
		t.Errorf("expected 2 issued events, got %d", f.publisher.issued)
	}

	snapshot, err := f.ledger.Snapshot(ctx, "svc-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := snapshot.Classes[domain.FareClassTurista].Sold; got != 2 {
		t.Errorf("expected sold=2, got %d", got)
	}
}

func TestPurchaseBatch_DuplicatePassengersCountOnce(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	resp, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p1", "p1"))
	if err != nil {
		t.Fatalf("PurchaseBatch failed: %v", err)
	}
	if len(resp.Tickets) != 1 {
		t.Fatalf("expected duplicates collapsed to 1 ticket, got %d", len(resp.Tickets))
	}

	snapshot, _ := f.ledger.Snapshot(ctx, "svc-1")
	if got := snapshot.Classes[domain.FareClassTurista].Sold; got != 1 {
		t.Errorf("expected sold=1, got %d", got)
	}
}

func TestPurchaseBatch_OwnershipViolation(t *testing.T) {
	f := newServiceFixture()
	f.passengers.OwnedByFunc = func(ctx context.Context, passengerID, accountID string) (bool, error) {
		return passengerID != "stranger", nil
	}

	_, err := f.svc.PurchaseBatch(context.Background(), "acc-1", purchaseRequest("p1", "stranger"))
	if !errors.Is(err, domain.ErrPassengerNotOwned) {
		t.Fatalf("expected ErrPassengerNotOwned, got %v", err)
	}

	// The doomed request must not touch the ledger.
	if _, err := f.ledger.Snapshot(context.Background(), "svc-1"); !errors.Is(err, domain.ErrLedgerNotFound) {
		t.Errorf("expected no ledger to exist, got %v", err)
	}
}

func TestPurchaseBatch_ServiceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("service not found", func(t *testing.T) {
		f := newServiceFixture()
		req := purchaseRequest("p1")
		req.ServiceID = "missing"
		_, err := f.svc.PurchaseBatch(ctx, "acc-1", req)
		if !errors.Is(err, domain.ErrServiceNotFound) {
			t.Fatalf("expected ErrServiceNotFound, got %v", err)
		}
	})

	t.Run("vehicle not assigned", func(t *testing.T) {
		f := newServiceFixture()
		f.scheduleRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.ScheduledService, error) {
			svc := testScheduledService()
			svc.VehicleID = ""
			return svc, nil
		}
		_, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1"))
		if !errors.Is(err, domain.ErrVehicleNotAssigned) {
			t.Fatalf("expected ErrVehicleNotAssigned, got %v", err)
		}
	})
}

func TestPurchaseBatch_StopOrderRejectedBeforeLedger(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	req := purchaseRequest("p1")
	req.OriginID = "C"
	req.DestinationID = "A"

	_, err := f.svc.PurchaseBatch(ctx, "acc-1", req)
	if !errors.Is(err, domain.ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}

	if _, err := f.ledger.Snapshot(ctx, "svc-1"); !errors.Is(err, domain.ErrLedgerNotFound) {
		t.Errorf("expected no ledger mutation, got %v", err)
	}
}

func TestPurchaseBatch_CapacityExhausted(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2")); err != nil {
		t.Fatalf("setup purchase failed: %v", err)
	}

	_, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p3"))
	if !errors.Is(err, domain.ErrNoSeatsAvailable) {
		t.Fatalf("expected ErrNoSeatsAvailable, got %v", err)
	}
}

func TestPurchaseBatch_CompensatesOnPersistenceFailure(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	persistErr := errors.New("insert failed")
	f.ticketRepo.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) error {
		return persistErr
	}

	_, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2"))
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected the persistence error to surface, got %v", err)
	}

	// The compensating release must return the counter to its pre-attempt value.
	snapshot, snapErr := f.ledger.Snapshot(ctx, "svc-1")
	if snapErr != nil {
		t.Fatalf("Snapshot failed: %v", snapErr)
	}
	if got := snapshot.Classes[domain.FareClassTurista].Sold; got != 0 {
		t.Fatalf("expected sold back to 0 after compensation, got %d", got)
	}

	// Seats released, so a retry with working persistence succeeds.
	f.ticketRepo.CreateBatchFunc = nil
	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1")); err != nil {
		t.Fatalf("expected purchase to succeed after compensation, got %v", err)
	}
}

func TestPurchaseBatch_ConcurrentLastSeats(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	const attempts = 3 // capacity is 2

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		passenger := []string{"p1", "p2", "p3"}[i]
		go func() {
			defer wg.Done()
			_, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest(passenger))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, denied := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrNoSeatsAvailable):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 || denied != 1 {
		t.Fatalf("expected 2 successes and 1 denial, got %d/%d", succeeded, denied)
	}
}

func TestCancel_ReleasesSeat(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	resp, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2"))
	if err != nil {
		t.Fatalf("setup purchase failed: %v", err)
	}
	first := resp.Tickets[0]

	stored := &domain.Ticket{
		ID:          first.ID,
		ServiceID:   "svc-1",
		PassengerID: first.PassengerID,
		Class:       domain.FareClassTurista,
		Status:      domain.TicketStatusPurchased,
	}
	f.ticketRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Ticket, error) {
		if id == stored.ID {
			copy := *stored
			return &copy, nil
		}
		return nil, domain.ErrTicketNotFound
	}
	f.ticketRepo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.TicketStatus) error {
		stored.Status = status
		return nil
	}

	cancelResp, err := f.svc.Cancel(ctx, "acc-1", stored.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelResp.Status != "CANCELLED" {
		t.Errorf("expected CANCELLED, got %s", cancelResp.Status)
	}

	snapshot, _ := f.ledger.Snapshot(ctx, "svc-1")
	if got := snapshot.Classes[domain.FareClassTurista].Sold; got != 1 {
		t.Fatalf("expected sold=1 after release, got %d", got)
	}
	if f.publisher.cancelled != 1 {
		t.Errorf("expected 1 cancelled event, got %d", f.publisher.cancelled)
	}

	// Cancelling again is an idempotent success with no double release.
	if _, err := f.svc.Cancel(ctx, "acc-1", stored.ID); err != nil {
		t.Fatalf("idempotent re-cancel failed: %v", err)
	}
	snapshot, _ = f.ledger.Snapshot(ctx, "svc-1")
	if got := snapshot.Classes[domain.FareClassTurista].Sold; got != 1 {
		t.Fatalf("expected sold unchanged after re-cancel, got %d", got)
	}
}

func TestCancel_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.svc.Cancel(ctx, "acc-1", "missing")
		if !errors.Is(err, domain.ErrTicketNotFound) {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("not owned", func(t *testing.T) {
		f := newServiceFixture()
		f.ticketRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, PassengerID: "stranger", Status: domain.TicketStatusPurchased}, nil
		}
		f.passengers.OwnedByFunc = func(ctx context.Context, passengerID, accountID string) (bool, error) {
			return false, nil
		}
		_, err := f.svc.Cancel(ctx, "acc-1", "tkt-1")
		if !errors.Is(err, domain.ErrTicketNotOwned) {
			t.Fatalf("expected ErrTicketNotOwned, got %v", err)
		}
	})

	t.Run("already used", func(t *testing.T) {
		f := newServiceFixture()
		f.ticketRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Ticket, error) {
			return &domain.Ticket{ID: id, PassengerID: "p1", Status: domain.TicketStatusUsed}, nil
		}
		_, err := f.svc.Cancel(ctx, "acc-1", "tkt-1")
		if !errors.Is(err, domain.ErrTicketAlreadyUsed) {
			t.Fatalf("expected ErrTicketAlreadyUsed, got %v", err)
		}
	})
}

func TestAvailability(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	t.Run("ledger absent", func(t *testing.T) {
		_, err := f.svc.Availability(ctx, "svc-1")
		if !errors.Is(err, domain.ErrLedgerNotFound) {
			t.Fatalf("expected ErrLedgerNotFound, got %v", err)
		}
	})

	t.Run("after sales", func(t *testing.T) {
		if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1")); err != nil {
			t.Fatalf("setup purchase failed: %v", err)
		}

		resp, err := f.svc.Availability(ctx, "svc-1")
		if err != nil {
			t.Fatalf("Availability failed: %v", err)
		}
		if len(resp.Classes) != 1 {
			t.Fatalf("expected 1 class, got %d", len(resp.Classes))
		}
		c := resp.Classes[0]
		if c.Class != "TURISTA" || c.Capacity != 2 || c.Sold != 1 || c.Available != 1 {
			t.Errorf("unexpected availability: %+v", c)
		}
		if resp.Total.Available != 1 {
			t.Errorf("expected total available 1, got %d", resp.Total.Available)
		}
	})
}

// Full walk through the purchase/deny/cancel/repurchase cycle on one service.
func TestRoundTrip(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	var stored sync.Map
	f.ticketRepo.CreateBatchFunc = func(ctx context.Context, tickets []*domain.Ticket) error {
		for _, ticket := range tickets {
			copy := *ticket
			stored.Store(ticket.ID, &copy)
		}
		return nil
	}
	f.ticketRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Ticket, error) {
		if v, ok := stored.Load(id); ok {
			copy := *(v.(*domain.Ticket))
			return &copy, nil
		}
		return nil, domain.ErrTicketNotFound
	}
	f.ticketRepo.UpdateStatusFunc = func(ctx context.Context, id string, status domain.TicketStatus) error {
		if v, ok := stored.Load(id); ok {
			v.(*domain.Ticket).Status = status
			return nil
		}
		return domain.ErrTicketNotFound
	}

	// Purchase 2 seats A -> C; TURISTA sells out.
	resp, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2"))
	if err != nil {
		t.Fatalf("initial purchase failed: %v", err)
	}
	if len(resp.Tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(resp.Tickets))
	}

	avail, err := f.svc.Availability(ctx, "svc-1")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Classes[0].Available != 0 {
		t.Fatalf("expected available 0, got %d", avail.Classes[0].Available)
	}

	// Third passenger is denied.
	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p3")); !errors.Is(err, domain.ErrNoSeatsAvailable) {
		t.Fatalf("expected ErrNoSeatsAvailable, got %v", err)
	}

	// Cancelling one ticket frees one seat.
	if _, err := f.svc.Cancel(ctx, "acc-1", resp.Tickets[0].ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	avail, _ = f.svc.Availability(ctx, "svc-1")
	if avail.Classes[0].Available != 1 {
		t.Fatalf("expected available 1 after cancel, got %d", avail.Classes[0].Available)
	}

	// Freed seat can be sold again.
	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p3")); err != nil {
		t.Fatalf("repurchase after cancel failed: %v", err)
	}
}

func TestAdjustCapacity(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p1", "p2")); err != nil {
		t.Fatalf("setup purchase failed: %v", err)
	}

	tests := []struct {
		name    string
		svcID   string
		req     *dto.AdjustCapacityRequest
		wantErr error
	}{
		{"blank service", "", &dto.AdjustCapacityRequest{Class: "TURISTA", Delta: 1}, domain.ErrInvalidServiceID},
		{"blank class", "svc-1", &dto.AdjustCapacityRequest{Delta: 1}, domain.ErrInvalidFareClass},
		{"zero delta", "svc-1", &dto.AdjustCapacityRequest{Class: "TURISTA", Delta: 0}, domain.ErrInvalidCapacityDelta},
		{"untracked class", "svc-1", &dto.AdjustCapacityRequest{Class: "PREFERENTE", Delta: 1}, domain.ErrClassNotTracked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AdjustCapacity(ctx, tt.svcID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	resp, err := f.svc.AdjustCapacity(ctx, "svc-1", &dto.AdjustCapacityRequest{Class: "TURISTA", Delta: 3})
	if err != nil {
		t.Fatalf("AdjustCapacity failed: %v", err)
	}
	if resp.Capacity != 5 || resp.Sold != 2 {
		t.Fatalf("expected capacity=5 sold=2, got %+v", resp)
	}

	// Grown capacity is immediately sellable.
	if _, err := f.svc.PurchaseBatch(ctx, "acc-1", purchaseRequest("p3")); err != nil {
		t.Fatalf("purchase after capacity growth failed: %v", err)
	}
}

func TestGetTicket(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	f.ticketRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Ticket, error) {
		if id == "tkt-1" {
			return &domain.Ticket{ID: "tkt-1", PassengerID: "p1", ServiceID: "svc-1"}, nil
		}
		return nil, domain.ErrTicketNotFound
	}

	resp, err := f.svc.GetTicket(ctx, "acc-1", "tkt-1")
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if resp.ID != "tkt-1" {
		t.Errorf("unexpected ticket: %+v", resp)
	}

	f.passengers.OwnedByFunc = func(ctx context.Context, passengerID, accountID string) (bool, error) {
		return false, nil
	}
	if _, err := f.svc.GetTicket(ctx, "acc-1", "tkt-1"); !errors.Is(err, domain.ErrTicketNotOwned) {
		t.Fatalf("expected ErrTicketNotOwned, got %v", err)
	}
}

func TestListTickets(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	f.passengers.ListIDsByAccountFunc = func(ctx context.Context, accountID string) ([]string, error) {
		return []string{"p1", "p2"}, nil
	}
	f.ticketRepo.ListByPassengersFunc = func(ctx context.Context, passengerIDs []string, limit, offset int) ([]*domain.Ticket, error) {
		if len(passengerIDs) != 2 {
			t.Errorf("expected 2 passenger ids, got %d", len(passengerIDs))
		}
		if limit != 20 {
			t.Errorf("expected default limit 20, got %d", limit)
		}
		return []*domain.Ticket{{ID: "tkt-1", PassengerID: "p1"}}, nil
	}

	resp, err := f.svc.ListTickets(ctx, "acc-1", 0, -5)
	if err != nil {
		t.Fatalf("ListTickets failed: %v", err)
	}
	if len(resp.Tickets) != 1 || resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
