package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// MemoryBookingRepository implements BookingRepository using in-memory
// storage. This is useful for testing and development.
type MemoryBookingRepository struct {
	bookings    map[string]*domain.Booking
	byReference map[string]string // reference -> bookingID
	byOrder     map[string]string // orderID -> bookingID
	mu          sync.RWMutex
}

// NewMemoryBookingRepository creates a new in-memory booking repository.
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings:    make(map[string]*domain.Booking),
		byReference: make(map[string]string),
		byOrder:     make(map[string]string),
	}
}

// Create creates a new booking record.
func (r *MemoryBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clone to avoid external modifications
	b := cloneBooking(booking)
	r.bookings[booking.ID] = b
	r.byReference[booking.Reference] = booking.ID
	if booking.OrderID != "" {
		r.byOrder[booking.OrderID] = booking.ID
	}
	return nil
}

// GetByID retrieves a booking by its ID.
func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, exists := r.bookings[id]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(booking), nil
}

// GetByReference retrieves a booking by its reference.
func (r *MemoryBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byReference[reference]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(r.bookings[id]), nil
}

// GetByOrderID retrieves a booking by its gateway order id.
func (r *MemoryBookingRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byOrder[orderID]
	if !exists {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(r.bookings[id]), nil
}

// Update updates an existing booking.
func (r *MemoryBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; !exists {
		return domain.ErrBookingNotFound
	}

	b := cloneBooking(booking)
	b.UpdatedAt = time.Now()
	r.bookings[booking.ID] = b
	if booking.OrderID != "" {
		r.byOrder[booking.OrderID] = booking.ID
	}
	return nil
}

// GetExpiredPending returns PENDING bookings whose hold lapsed before now.
func (r *MemoryBookingRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []*domain.Booking
	for _, booking := range r.bookings {
		if booking.HoldLapsed(now) {
			expired = append(expired, cloneBooking(booking))
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].HoldExpiresAt.Before(expired[j].HoldExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// Clear clears all data (for testing).
func (r *MemoryBookingRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = make(map[string]*domain.Booking)
	r.byReference = make(map[string]string)
	r.byOrder = make(map[string]string)
}

// Count returns the total number of bookings (for testing).
func (r *MemoryBookingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

func cloneBooking(booking *domain.Booking) *domain.Booking {
	b := *booking
	b.PriceBreakdown = append([]domain.DailyRate(nil), booking.PriceBreakdown...)
	b.Refunds = append([]domain.RefundDetail(nil), booking.Refunds...)
	return &b
}

// Ensure MemoryBookingRepository implements BookingRepository
var _ BookingRepository = (*MemoryBookingRepository)(nil)
