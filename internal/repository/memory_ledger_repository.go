package repository

import (
	"context"
	"sync"

	"github.com/railops/train-reservation/internal/domain"
)

// memoryLedgerRepository is an in-process LedgerRepository with the same
// compare-and-increment semantics as the Redis implementation. Used in
// tests and local development without a Redis instance.
type memoryLedgerRepository struct {
	mu      sync.Mutex
	ledgers map[string]map[domain.FareClass]*domain.ClassCounters
}

// NewMemoryLedgerRepository creates an in-memory capacity ledger
func NewMemoryLedgerRepository() LedgerRepository {
	return &memoryLedgerRepository{
		ledgers: make(map[string]map[domain.FareClass]*domain.ClassCounters),
	}
}

func (r *memoryLedgerRepository) Ensure(_ context.Context, serviceID string, capacities map[domain.FareClass]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ledgers[serviceID]; exists {
		return nil
	}

	classes := make(map[domain.FareClass]*domain.ClassCounters, len(capacities))
	for class, capacity := range capacities {
		classes[class] = &domain.ClassCounters{Capacity: capacity}
	}
	r.ledgers[serviceID] = classes
	return nil
}

func (r *memoryLedgerRepository) Reserve(_ context.Context, serviceID string, class domain.FareClass, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, exists := r.ledgers[serviceID]
	if !exists {
		return false, domain.ErrLedgerNotFound
	}
	counters, tracked := ledger[class]
	if !tracked {
		return false, domain.ErrClassNotTracked
	}

	if counters.Sold+quantity > counters.Capacity {
		return false, nil
	}
	counters.Sold += quantity
	return true, nil
}

func (r *memoryLedgerRepository) Release(_ context.Context, serviceID string, class domain.FareClass, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, exists := r.ledgers[serviceID]
	if !exists {
		return domain.ErrLedgerNotFound
	}
	counters, tracked := ledger[class]
	if !tracked {
		return nil
	}

	counters.Sold -= quantity
	if counters.Sold < 0 {
		counters.Sold = 0
	}
	return nil
}

func (r *memoryLedgerRepository) AdjustCapacity(_ context.Context, serviceID string, class domain.FareClass, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, exists := r.ledgers[serviceID]
	if !exists {
		return domain.ErrLedgerNotFound
	}
	counters, tracked := ledger[class]
	if !tracked {
		return domain.ErrClassNotTracked
	}

	counters.Capacity += delta
	return nil
}

func (r *memoryLedgerRepository) Snapshot(_ context.Context, serviceID string) (*domain.LedgerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, exists := r.ledgers[serviceID]
	if !exists {
		return nil, domain.ErrLedgerNotFound
	}

	snapshot := &domain.LedgerSnapshot{
		ServiceID: serviceID,
		Classes:   make(map[domain.FareClass]domain.ClassCounters, len(ledger)),
	}
	for class, counters := range ledger {
		snapshot.Classes[class] = *counters
	}
	return snapshot, nil
}
