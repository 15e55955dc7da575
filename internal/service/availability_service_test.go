package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
)

type availabilityFixture struct {
	svc      AvailabilityService
	calendar *repository.MemoryCalendarRepository
	clock    time.Time
}

func newAvailabilityFixture(t *testing.T) *availabilityFixture {
	t.Helper()
	f := &availabilityFixture{
		calendar: repository.NewMemoryCalendarRepository(),
		clock:    time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	roomRepo := newMockRoomRepo(&domain.Room{
		ID:        "room-1",
		Capacity:  2,
		BasePrice: decimal.NewFromInt(5000),
		Active:    true,
	})
	f.svc = NewAvailabilityService(f.calendar, roomRepo, &AvailabilityServiceConfig{
		HoldTTL: 15 * time.Minute,
	})
	f.svc.(*availabilityService).now = f.now
	f.calendar.SetNow(f.now)
	return f
}

func (f *availabilityFixture) now() time.Time { return f.clock }

func (f *availabilityFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func availRange(t *testing.T, in, out string) domain.DateRange {
	t.Helper()
	rng, err := domain.NewDateRange(in, out)
	require.NoError(t, err)
	return rng
}

func TestAvailabilityHoldSetsTTL(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()
	rng := availRange(t, "2026-10-01", "2026-10-03")

	token, err := f.svc.Hold(ctx, "room-1", rng, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(15*time.Minute), token.ExpiresAt)
	assert.Equal(t, "bk-1", token.BookingID)
}

func TestAvailabilityHoldUnknownRoom(t *testing.T) {
	f := newAvailabilityFixture(t)

	_, err := f.svc.Hold(context.Background(), "nope", availRange(t, "2026-10-01", "2026-10-03"), "bk-1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAvailabilityHoldRejectsPastCheckIn(t *testing.T) {
	f := newAvailabilityFixture(t)

	_, err := f.svc.Hold(context.Background(), "room-1", availRange(t, "2026-08-01", "2026-08-03"), "bk-1")
	assert.ErrorIs(t, err, domain.ErrDateRangeInvalid)
}

func TestAvailabilityHoldConflict(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()

	_, err := f.svc.Hold(ctx, "room-1", availRange(t, "2026-10-01", "2026-10-03"), "bk-1")
	require.NoError(t, err)

	_, err = f.svc.Hold(ctx, "room-1", availRange(t, "2026-10-02", "2026-10-04"), "bk-2")
	conflict, ok := domain.IsAvailabilityConflict(err)
	require.True(t, ok, "expected availability conflict, got %v", err)
	require.Len(t, conflict.Dates, 1)
	assert.Equal(t, "2026-10-02", conflict.Dates[0].Format(domain.DateLayout))
}

func TestAvailabilityQueryReportsLapsedHoldFree(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()
	rng := availRange(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.Hold(ctx, "room-1", rng, "bk-1")
	require.NoError(t, err)

	records, err := f.svc.QueryRange(ctx, "room-1", rng)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.DayStateHeld, records[0].State)

	f.advance(16 * time.Minute)

	records, err = f.svc.QueryRange(ctx, "room-1", rng)
	require.NoError(t, err)
	for _, record := range records {
		assert.Equal(t, domain.DayStateFree, record.State)
		assert.Empty(t, record.BookingID)
	}
}

func TestAvailabilityConfirmThenRelease(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()
	rng := availRange(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.Hold(ctx, "room-1", rng, "bk-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.Confirm(ctx, "room-1", rng, "bk-1"))

	records, err := f.svc.QueryRange(ctx, "room-1", rng)
	require.NoError(t, err)
	for _, record := range records {
		assert.Equal(t, domain.DayStateBooked, record.State)
	}

	freed, err := f.svc.Release(ctx, "room-1", rng, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 2, freed)
}

func TestAvailabilityConfirmLapsedHold(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()
	rng := availRange(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.Hold(ctx, "room-1", rng, "bk-1")
	require.NoError(t, err)

	f.advance(16 * time.Minute)

	err = f.svc.Confirm(ctx, "room-1", rng, "bk-1")
	assert.ErrorIs(t, err, domain.ErrHoldExpired)
}

func TestAvailabilityBlockAndUnblock(t *testing.T) {
	f := newAvailabilityFixture(t)
	ctx := context.Background()
	rng := availRange(t, "2026-10-10", "2026-10-12")

	require.NoError(t, f.svc.Block(ctx, "room-1", rng, domain.BlockReasonMaintenance))

	_, err := f.svc.Hold(ctx, "room-1", rng, "bk-1")
	_, ok := domain.IsAvailabilityConflict(err)
	assert.True(t, ok, "expected conflict on blocked nights, got %v", err)

	unblocked, err := f.svc.Unblock(ctx, "room-1", rng)
	require.NoError(t, err)
	assert.Equal(t, 2, unblocked)

	_, err = f.svc.Hold(ctx, "room-1", rng, "bk-1")
	assert.NoError(t, err)
}
