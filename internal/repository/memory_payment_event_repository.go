package repository

import (
	"context"
	"sync"
	"time"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// MemoryPaymentEventRepository implements the idempotency ledger in memory.
// This is useful for testing and development.
type MemoryPaymentEventRepository struct {
	byEventID map[string]*domain.PaymentEvent
	byTarget  map[string]*domain.PaymentEvent // bookingID + "/" + targetStatus
	mu        sync.Mutex
}

// NewMemoryPaymentEventRepository creates a new in-memory ledger.
func NewMemoryPaymentEventRepository() *MemoryPaymentEventRepository {
	return &MemoryPaymentEventRepository{
		byEventID: make(map[string]*domain.PaymentEvent),
		byTarget:  make(map[string]*domain.PaymentEvent),
	}
}

// Record inserts a ledger entry, returning false on a duplicate.
func (r *MemoryPaymentEventRepository) Record(ctx context.Context, event *domain.PaymentEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Refund events carry their refund id in the key so several partial
	// refunds against one booking do not suppress each other.
	targetKey := event.BookingID + "/" + event.TargetStatus.String() + "/" + event.RefundID
	if event.EventID != "" {
		if _, exists := r.byEventID[event.EventID]; exists {
			return false, nil
		}
	}
	if _, exists := r.byTarget[targetKey]; exists {
		return false, nil
	}

	e := *event
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	if e.EventID != "" {
		r.byEventID[e.EventID] = &e
	}
	r.byTarget[targetKey] = &e
	return true, nil
}

// Count returns the number of applied events (for testing).
func (r *MemoryPaymentEventRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTarget)
}

// Ensure MemoryPaymentEventRepository implements PaymentEventRepository
var _ PaymentEventRepository = (*MemoryPaymentEventRepository)(nil)
