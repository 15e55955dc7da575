package repository

import (
	"context"
	"sync"
	"time"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// MemoryCalendarRepository implements CalendarRepository with in-process
// storage. It keeps the same all-or-nothing range semantics as the Redis
// implementation and is useful for testing and development.
type MemoryCalendarRepository struct {
	days map[string]*domain.DayRecord // key: roomID + "/" + date
	mu   sync.Mutex
	now  func() time.Time
}

// NewMemoryCalendarRepository creates a new in-memory calendar repository.
func NewMemoryCalendarRepository() *MemoryCalendarRepository {
	return &MemoryCalendarRepository{
		days: make(map[string]*domain.DayRecord),
		now:  time.Now,
	}
}

// SetNow overrides the clock, for tests that drive hold expiry.
func (r *MemoryCalendarRepository) SetNow(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func memDayKey(roomID string, date time.Time) string {
	return roomID + "/" + date.Format(domain.DateLayout)
}

func (r *MemoryCalendarRepository) day(roomID string, date time.Time) *domain.DayRecord {
	key := memDayKey(roomID, date)
	if d, ok := r.days[key]; ok {
		return d
	}
	d := &domain.DayRecord{RoomID: roomID, Date: date, State: domain.DayStateFree}
	r.days[key] = d
	return d
}

// HoldRange atomically claims every night in rng for bookingID.
func (r *MemoryCalendarRepository) HoldRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string, expiresAt time.Time) (*domain.HoldToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	conflict := &domain.AvailabilityConflictError{RoomID: roomID}
	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		// A booking retrying its own live hold is not a conflict.
		if !d.IsFree(now) && !d.HeldBy(bookingID, now) {
			conflict.Dates = append(conflict.Dates, date)
		}
	}
	if len(conflict.Dates) > 0 {
		return nil, conflict
	}

	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		d.State = domain.DayStateHeld
		d.BookingID = bookingID
		d.BlockReason = ""
		d.HoldExpiresAt = expiresAt
		d.UpdatedAt = now
	}

	return &domain.HoldToken{
		RoomID:    roomID,
		BookingID: bookingID,
		Range:     rng,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmRange promotes a live hold to BOOKED.
func (r *MemoryCalendarRepository) ConfirmRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		switch {
		case d.State == domain.DayStateBooked && d.BookingID == bookingID:
			// already confirmed, fine
		case d.HeldBy(bookingID, now):
		default:
			return domain.ErrHoldExpired
		}
	}

	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		d.State = domain.DayStateBooked
		d.BookingID = bookingID
		d.HoldExpiresAt = time.Time{}
		d.UpdatedAt = now
	}
	return nil
}

// ReleaseRange frees every night in rng owned by bookingID.
func (r *MemoryCalendarRepository) ReleaseRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	freed := 0
	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		owned := (d.State == domain.DayStateHeld || d.State == domain.DayStateBooked) && d.BookingID == bookingID
		if !owned {
			continue
		}
		d.State = domain.DayStateFree
		d.BookingID = ""
		d.HoldExpiresAt = time.Time{}
		d.UpdatedAt = now
		freed++
	}
	return freed, nil
}

// BlockRange marks every free night in rng BLOCKED.
func (r *MemoryCalendarRepository) BlockRange(ctx context.Context, roomID string, rng domain.DateRange, reason domain.BlockReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	conflict := &domain.AvailabilityConflictError{RoomID: roomID}
	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		if d.State != domain.DayStateBlocked && !d.IsFree(now) {
			conflict.Dates = append(conflict.Dates, date)
		}
	}
	if len(conflict.Dates) > 0 {
		return conflict
	}

	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		d.State = domain.DayStateBlocked
		d.BlockReason = reason
		d.BookingID = ""
		d.HoldExpiresAt = time.Time{}
		d.UpdatedAt = now
	}
	return nil
}

// UnblockRange returns BLOCKED nights in rng to FREE.
func (r *MemoryCalendarRepository) UnblockRange(ctx context.Context, roomID string, rng domain.DateRange) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	unblocked := 0
	for _, date := range rng.Dates() {
		d := r.day(roomID, date)
		if d.State != domain.DayStateBlocked {
			continue
		}
		d.State = domain.DayStateFree
		d.BlockReason = ""
		d.UpdatedAt = now
		unblocked++
	}
	return unblocked, nil
}

// GetRange returns one DayRecord per night, FREE-filled for missing days.
func (r *MemoryCalendarRepository) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dates := rng.Dates()
	records := make([]domain.DayRecord, 0, len(dates))
	for _, date := range dates {
		if d, ok := r.days[memDayKey(roomID, date)]; ok {
			records = append(records, *d)
			continue
		}
		records = append(records, domain.DayRecord{
			RoomID: roomID,
			Date:   date,
			State:  domain.DayStateFree,
		})
	}
	return records, nil
}

// Clear clears all data (for testing).
func (r *MemoryCalendarRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = make(map[string]*domain.DayRecord)
}

// Ensure MemoryCalendarRepository implements CalendarRepository
var _ CalendarRepository = (*MemoryCalendarRepository)(nil)
