package repository

import (
	"context"

	"github.com/railops/train-reservation/internal/domain"
)

// LedgerRepository is the atomic capacity ledger, one record per scheduled
// service. All mutation goes through these primitives; callers never
// read-modify-write the counters themselves.
type LedgerRepository interface {
	// Ensure creates the ledger for a service if it does not exist yet.
	// Capacities are fixed at first creation; a later call with different
	// capacities leaves the existing ledger unchanged.
	Ensure(ctx context.Context, serviceID string, capacities map[domain.FareClass]int) error

	// Reserve atomically increments sold[class] by quantity only if
	// sold+quantity <= capacity. The check and the increment are one
	// indivisible operation against the backing store, so concurrent
	// callers racing for the last seat produce exactly one winner.
	Reserve(ctx context.Context, serviceID string, class domain.FareClass, quantity int) (bool, error)

	// Release decrements sold[class] by quantity, floored at zero. Used
	// for cancellation and compensation; unconditional by design.
	Release(ctx context.Context, serviceID string, class domain.FareClass, quantity int) error

	// AdjustCapacity increases tracked capacity for a class (vehicle swap
	// to a bigger unit). Delta must be positive.
	AdjustCapacity(ctx context.Context, serviceID string, class domain.FareClass, delta int) error

	// Snapshot returns a point-in-time copy of the ledger counters.
	Snapshot(ctx context.Context, serviceID string) (*domain.LedgerSnapshot, error)
}

// TicketRepository persists issued tickets
type TicketRepository interface {
	// CreateBatch inserts all tickets in one transaction; either every
	// ticket is persisted or none is.
	CreateBatch(ctx context.Context, tickets []*domain.Ticket) error

	// GetByID retrieves a ticket by its id
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)

	// UpdateStatus flips a ticket's status
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error

	// ListByPassengers retrieves tickets for a set of passenger ids
	ListByPassengers(ctx context.Context, passengerIDs []string, limit, offset int) ([]*domain.Ticket, error)

	// CountActiveByService counts non-cancelled tickets for a service,
	// used by the occupancy projector as a reconciliation source.
	CountActiveByService(ctx context.Context, serviceID string) (int, error)
}

// ScheduleRepository reads scheduled services and writes their denormalized
// occupancy projection
type ScheduleRepository interface {
	// GetByID retrieves a scheduled service with its ordered stop list
	GetByID(ctx context.Context, id string) (*domain.ScheduledService, error)

	// UpdateOccupancy persists the denormalized occupancy fields. Last
	// writer wins; the projection is not a source of truth.
	UpdateOccupancy(ctx context.Context, serviceID string, occupancy *domain.Occupancy) error

	// ListActiveIDs returns ids of services still open for sale, for the
	// projector's reconcile sweep.
	ListActiveIDs(ctx context.Context, limit int) ([]string, error)
}

// VehicleRepository reads vehicle reference data
type VehicleRepository interface {
	// GetByID retrieves a vehicle with its class-tagged cars
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

// PassengerRepository answers ownership checks against the account store
type PassengerRepository interface {
	// OwnedBy reports whether the passenger belongs to the account
	OwnedBy(ctx context.Context, passengerID, accountID string) (bool, error)

	// ListIDsByAccount returns the ids of all passengers on the account
	ListIDsByAccount(ctx context.Context, accountID string) ([]string, error)
}
