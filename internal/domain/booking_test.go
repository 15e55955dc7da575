package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusCheckedIn, false},
		{BookingStatusConfirmed, BookingStatusCheckedIn, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusCompleted, false},
		{BookingStatusCheckedIn, BookingStatusCheckedOut, true},
		{BookingStatusCheckedIn, BookingStatusCancelled, false},
		{BookingStatusCheckedOut, BookingStatusCompleted, true},
		{BookingStatusCancelled, BookingStatusRefunded, true},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusRefunded, BookingStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.True(t, BookingStatusRefunded.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())
	assert.False(t, BookingStatusConfirmed.IsTerminal())
	assert.False(t, BookingStatusCheckedIn.IsTerminal())
}

func TestNewBookingReference(t *testing.T) {
	ref := NewBookingReference()
	assert.True(t, strings.HasPrefix(ref, "HSB-"))
	assert.Len(t, ref, 12)
	assert.Equal(t, strings.ToUpper(ref), ref)
	assert.NotEqual(t, ref, NewBookingReference())
}

func TestBooking_RefundAccounting(t *testing.T) {
	booking := &Booking{
		TotalAmount: decimal.NewFromInt(10000),
		Refunds: []RefundDetail{
			{RefundID: "rf-1", Amount: decimal.NewFromInt(3000)},
			{RefundID: "rf-2", Amount: decimal.NewFromInt(2500)},
		},
	}

	assert.True(t, booking.RefundedAmount().Equal(decimal.NewFromInt(5500)))
	assert.True(t, booking.RemainingRefundable().Equal(decimal.NewFromInt(4500)))
}

func TestBooking_HoldLapsed(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	pending := &Booking{Status: BookingStatusPending, HoldExpiresAt: now.Add(-time.Minute)}
	assert.True(t, pending.HoldLapsed(now))

	live := &Booking{Status: BookingStatusPending, HoldExpiresAt: now.Add(time.Minute)}
	assert.False(t, live.HoldLapsed(now))

	confirmed := &Booking{Status: BookingStatusConfirmed, HoldExpiresAt: now.Add(-time.Minute)}
	assert.False(t, confirmed.HoldLapsed(now))
}

func TestStateTransitionError(t *testing.T) {
	err := NewStateTransitionError("bk-1", BookingStatusCompleted, BookingStatusCancelled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Contains(t, err.Error(), "COMPLETED")
	assert.Contains(t, err.Error(), "CANCELLED")
}
