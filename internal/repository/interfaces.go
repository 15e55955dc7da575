package repository

import (
	"context"
	"time"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// CalendarRepository owns the per-(room, date) occupancy calendar. Range
// operations are atomic: a hold either claims every night or none.
type CalendarRepository interface {
	// HoldRange atomically claims every night in rng for bookingID. Nights
	// whose hold has lapsed count as free. On conflict it returns
	// *domain.AvailabilityConflictError carrying the contested dates.
	HoldRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string, expiresAt time.Time) (*domain.HoldToken, error)

	// ConfirmRange promotes a live hold to BOOKED. Nights already BOOKED by
	// the same booking are accepted, so retries are safe. A lapsed or missing
	// hold returns domain.ErrHoldExpired.
	ConfirmRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) error

	// ReleaseRange frees every night in rng owned by bookingID, whether HELD
	// or BOOKED. Nights owned by other bookings are untouched. It returns the
	// number of nights actually freed; releasing an already-free range is not
	// an error.
	ReleaseRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (int, error)

	// BlockRange marks every free night in rng BLOCKED for administrative
	// reasons. Held or booked nights cause a conflict error and nothing is
	// written.
	BlockRange(ctx context.Context, roomID string, rng domain.DateRange, reason domain.BlockReason) error

	// UnblockRange returns BLOCKED nights in rng to FREE and reports how many
	// nights changed. Non-blocked nights are untouched.
	UnblockRange(ctx context.Context, roomID string, rng domain.DateRange) (int, error)

	// GetRange returns one DayRecord per night in rng in ascending date
	// order. Nights without a stored record come back as FREE.
	GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DayRecord, error)
}

// BookingRepository persists booking aggregates.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) error

	// GetExpiredPending returns PENDING bookings whose hold TTL passed before
	// now, oldest first, capped at limit. The sweep worker feeds on this.
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error)
}

// PriceRepository stores explicit per-day prices. Days without a row fall
// back to the room's base price at read time.
type PriceRepository interface {
	// GetRange returns the explicit price rows inside rng, ascending by date.
	// Days with no explicit price are simply absent from the result.
	GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error)

	// SetDay upserts the price for a single day.
	SetDay(ctx context.Context, record *domain.PriceRecord) error

	// SetRange replaces every explicit price inside rng with the given
	// records in one transaction.
	SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error
}

// RoomRepository reads room identity and base pricing. Room administration
// lives outside the engine.
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Room, error)
}

// PaymentEventRepository is the webhook idempotency ledger. Record returns
// false when an equivalent event was already applied, keyed by the gateway
// event id and by (booking id, target status).
type PaymentEventRepository interface {
	Record(ctx context.Context, event *domain.PaymentEvent) (bool, error)
}
