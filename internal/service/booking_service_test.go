package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
)

type bookingFixture struct {
	svc       BookingService
	bookings  *repository.MemoryBookingRepository
	calendar  *repository.MemoryCalendarRepository
	events    *repository.MemoryPaymentEventRepository
	prices    *mockPriceRepo
	gateway   *gateway.MockGateway
	publisher *recordingPublisher
	clock     time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings:  repository.NewMemoryBookingRepository(),
		calendar:  repository.NewMemoryCalendarRepository(),
		events:    repository.NewMemoryPaymentEventRepository(),
		prices:    newMockPriceRepo(),
		gateway:   gateway.NewMockGateway("key_secret", "webhook_secret"),
		publisher: newRecordingPublisher(),
		clock:     time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	f.calendar.SetNow(f.now)

	roomRepo := newMockRoomRepo(&domain.Room{
		ID:        "room-1",
		Name:      "Valley View",
		Capacity:  3,
		BasePrice: decimal.NewFromInt(5000),
		Active:    true,
	})

	avail := NewAvailabilityService(f.calendar, roomRepo, &AvailabilityServiceConfig{
		HoldTTL: 15 * time.Minute,
	})
	avail.(*availabilityService).now = f.now

	pricing := NewPricingService(f.prices, roomRepo)

	svc, err := NewBookingService(&BookingServiceConfig{
		BookingRepo:  f.bookings,
		EventRepo:    f.events,
		RoomRepo:     roomRepo,
		Availability: avail,
		Pricing:      pricing,
		Gateway:      f.gateway,
		Publisher:    f.publisher,
		Currency:     "INR",
	})
	require.NoError(t, err)
	svc.(*bookingService).now = f.now
	f.svc = svc
	return f
}

func (f *bookingFixture) now() time.Time { return f.clock }

func (f *bookingFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *bookingFixture) create(t *testing.T, checkIn, checkOut string) *domain.Booking {
	t.Helper()
	booking, err := f.svc.Create(context.Background(), &CreateBookingRequest{
		RoomID:   "room-1",
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guest: domain.GuestDetails{
			Name:           "Asha Rao",
			Email:          "asha@example.com",
			Phone:          "+919800000000",
			NumberOfGuests: 2,
		},
	})
	require.NoError(t, err)
	return booking
}

func (f *bookingFixture) confirm(t *testing.T, booking *domain.Booking, paymentID string) *domain.Booking {
	t.Helper()
	confirmed, err := f.svc.ConfirmPayment(context.Background(), &PaymentCallback{
		BookingID: booking.ID,
		OrderID:   booking.OrderID,
		PaymentID: paymentID,
		Signature: f.gateway.Sign(booking.OrderID, paymentID),
	})
	require.NoError(t, err)
	return confirmed
}

func (f *bookingFixture) dayStates(t *testing.T, rng domain.DateRange) []domain.DayState {
	t.Helper()
	records, err := f.calendar.GetRange(context.Background(), "room-1", rng)
	require.NoError(t, err)
	states := make([]domain.DayState, len(records))
	for i, record := range records {
		states[i] = record.State
	}
	return states
}

func waitForPublish(t *testing.T, p *recordingPublisher, kind domain.NotificationKind, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.count(kind) == want
	}, time.Second, 5*time.Millisecond, "expected %d %s notifications", want, kind)
}

func TestBookingCreateFreezesPrice(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, booking.PaymentStatus)
	assert.True(t, booking.TotalAmount.Equal(decimal.NewFromInt(10000)), "got %s", booking.TotalAmount)
	assert.Len(t, booking.PriceBreakdown, 2)
	assert.NotEmpty(t, booking.OrderID)
	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, f.clock.Add(15*time.Minute), booking.HoldExpiresAt)

	states := f.dayStates(t, booking.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateHeld, domain.DayStateHeld}, states)

	waitForPublish(t, f.publisher, domain.NotificationBookingCreated, 1)
}

func TestBookingPriceSnapshotImmutable(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	require.True(t, booking.TotalAmount.Equal(decimal.NewFromInt(10000)))

	// Reprice the held nights after the snapshot was taken
	for _, date := range booking.Range.Dates() {
		require.NoError(t, f.prices.SetDay(context.Background(), &domain.PriceRecord{
			RoomID: "room-1",
			Date:   date,
			Price:  decimal.NewFromInt(9000),
			Reason: domain.PriceReasonEvent,
		}))
	}

	confirmed := f.confirm(t, booking, "pay_001")
	assert.True(t, confirmed.TotalAmount.Equal(decimal.NewFromInt(10000)), "got %s", confirmed.TotalAmount)
	require.Len(t, confirmed.PriceBreakdown, 2)
	for _, night := range confirmed.PriceBreakdown {
		assert.True(t, night.Price.Equal(decimal.NewFromInt(5000)), "night %s got %s", night.Date, night.Price)
	}
}

func TestBookingCreateConflict(t *testing.T) {
	f := newBookingFixture(t)

	f.create(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.Create(context.Background(), &CreateBookingRequest{
		RoomID:   "room-1",
		CheckIn:  "2026-10-02",
		CheckOut: "2026-10-04",
		Guest: domain.GuestDetails{
			Name:           "Ravi",
			Email:          "ravi@example.com",
			NumberOfGuests: 1,
		},
	})
	_, ok := domain.IsAvailabilityConflict(err)
	require.True(t, ok, "expected availability conflict, got %v", err)
	assert.Equal(t, 1, f.bookings.Count())
}

func TestBookingCreateOverCapacity(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.Create(context.Background(), &CreateBookingRequest{
		RoomID:   "room-1",
		CheckIn:  "2026-10-01",
		CheckOut: "2026-10-03",
		Guest: domain.GuestDetails{
			Name:           "Big Group",
			Email:          "group@example.com",
			NumberOfGuests: 8,
		},
	})
	assert.ErrorContains(t, err, "sleeps")
}

func TestBookingCreateGatewayDownReleasesHold(t *testing.T) {
	f := newBookingFixture(t)
	f.gateway.SetUnavailable(true)

	_, err := f.svc.Create(context.Background(), &CreateBookingRequest{
		RoomID:   "room-1",
		CheckIn:  "2026-10-01",
		CheckOut: "2026-10-03",
		Guest: domain.GuestDetails{
			Name:           "Asha Rao",
			Email:          "asha@example.com",
			NumberOfGuests: 2,
		},
	})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	// The aborted create must not keep the nights held
	f.gateway.SetUnavailable(false)
	f.create(t, "2026-10-01", "2026-10-03")
}

func TestBookingConfirmPayment(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	confirmed := f.confirm(t, booking, "pay_001")

	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, "pay_001", confirmed.PaymentID)

	states := f.dayStates(t, booking.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateBooked, domain.DayStateBooked}, states)

	waitForPublish(t, f.publisher, domain.NotificationBookingConfirmed, 1)

	// A replayed callback is a no-op
	again := f.confirm(t, booking, "pay_001")
	assert.Equal(t, domain.BookingStatusConfirmed, again.Status)
	assert.Equal(t, 1, f.events.Count())
}

func TestBookingConfirmPaymentBadSignature(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.ConfirmPayment(context.Background(), &PaymentCallback{
		BookingID: booking.ID,
		OrderID:   booking.OrderID,
		PaymentID: "pay_001",
		Signature: "forged",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)

	stored, err := f.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
}

func TestBookingConfirmPaymentWrongOrder(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.ConfirmPayment(context.Background(), &PaymentCallback{
		BookingID: booking.ID,
		OrderID:   "order_someone_elses",
		PaymentID: "pay_001",
		Signature: f.gateway.Sign("order_someone_elses", "pay_001"),
	})
	assert.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
}

func TestBookingWebhookCaptureByOrderID(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	applied, err := f.svc.ApplyGatewayEvent(context.Background(), &GatewayEvent{
		EventID:   "evt_001",
		Kind:      domain.PaymentEventCaptured,
		OrderID:   booking.OrderID,
		PaymentID: "pay_001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, applied.Status)
	assert.Equal(t, domain.PaymentStatusPaid, applied.PaymentStatus)
}

func TestBookingWebhookDuplicateSuppressed(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	// The webhook for the same capture arrives after the sync callback
	applied, err := f.svc.ApplyGatewayEvent(context.Background(), &GatewayEvent{
		EventID:   "evt_001",
		Kind:      domain.PaymentEventCaptured,
		BookingID: booking.ID,
		OrderID:   booking.OrderID,
		PaymentID: "pay_001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, applied.Status)

	// Replaying the webhook itself changes nothing either
	_, err = f.svc.ApplyGatewayEvent(context.Background(), &GatewayEvent{
		EventID:   "evt_001",
		Kind:      domain.PaymentEventCaptured,
		BookingID: booking.ID,
		OrderID:   booking.OrderID,
		PaymentID: "pay_001",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.events.Count())

	waitForPublish(t, f.publisher, domain.NotificationBookingConfirmed, 1)
}

func TestBookingWebhookPaymentFailed(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	applied, err := f.svc.ApplyGatewayEvent(context.Background(), &GatewayEvent{
		EventID:   "evt_fail",
		Kind:      domain.PaymentEventFailed,
		OrderID:   booking.OrderID,
		PaymentID: "pay_001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, applied.Status)
	assert.Equal(t, "payment failed", applied.CancellationReason)
	assert.Equal(t, domain.PaymentStatusUnpaid, applied.PaymentStatus)

	states := f.dayStates(t, booking.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateFree, domain.DayStateFree}, states)
}

func TestBookingCaptureAfterHoldLapsed(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.advance(16 * time.Minute)

	_, err := f.svc.ConfirmPayment(context.Background(), &PaymentCallback{
		BookingID: booking.ID,
		OrderID:   booking.OrderID,
		PaymentID: "pay_late",
		Signature: f.gateway.Sign(booking.OrderID, "pay_late"),
	})
	assert.ErrorIs(t, err, domain.ErrHoldExpired)

	stored, err := f.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
	// The captured amount is retained on the record for the refund that follows
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pay_late", stored.PaymentID)
}

func TestBookingCancelPending(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	cancelled, err := f.svc.Cancel(context.Background(), &CancelBookingRequest{
		BookingID:   booking.ID,
		Reason:      "change of plans",
		CancelledBy: "guest",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "change of plans", cancelled.CancellationReason)

	states := f.dayStates(t, booking.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateFree, domain.DayStateFree}, states)

	// Cancelling again is a no-op
	again, err := f.svc.Cancel(context.Background(), &CancelBookingRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, again.Status)
}

func TestBookingCancelConfirmedRefundsByDefault(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	cancelled, err := f.svc.Cancel(context.Background(), &CancelBookingRequest{
		BookingID:   booking.ID,
		Reason:      "host unavailable",
		CancelledBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusRefunded, cancelled.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, cancelled.PaymentStatus)
	require.Len(t, cancelled.Refunds, 1)
	assert.True(t, cancelled.Refunds[0].Amount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 1, f.gateway.RefundCount())

	states := f.dayStates(t, booking.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateFree, domain.DayStateFree}, states)
}

func TestBookingCancelConfirmedSkipRefund(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	cancelled, err := f.svc.Cancel(context.Background(), &CancelBookingRequest{
		BookingID:   booking.ID,
		Reason:      "no-show, payment withheld",
		CancelledBy: "admin",
		SkipRefund:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.PaymentStatusPaid, cancelled.PaymentStatus)
	assert.Empty(t, cancelled.Refunds)
	assert.Equal(t, 0, f.gateway.RefundCount())
}

func TestBookingRefundCeiling(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	partial, err := f.svc.Refund(ctx, &RefundBookingRequest{
		BookingID:   booking.ID,
		Amount:      decimal.NewFromInt(4000),
		Reason:      "late cancellation fee waived",
		ProcessedBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartialRefund, partial.PaymentStatus)
	assert.True(t, partial.RemainingRefundable().Equal(decimal.NewFromInt(6000)))

	_, err = f.svc.Refund(ctx, &RefundBookingRequest{
		BookingID:   booking.ID,
		Amount:      decimal.NewFromInt(7000),
		Reason:      "too much",
		ProcessedBy: "admin",
	})
	assert.ErrorIs(t, err, domain.ErrRefundFailed)

	full, err := f.svc.Refund(ctx, &RefundBookingRequest{
		BookingID:   booking.ID,
		Amount:      decimal.NewFromInt(6000),
		Reason:      "goodwill",
		ProcessedBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, full.PaymentStatus)
	assert.True(t, full.RemainingRefundable().IsZero())
	assert.Equal(t, 2, f.gateway.RefundCount())

	waitForPublish(t, f.publisher, domain.NotificationRefundRecorded, 2)
}

func TestBookingRefundUnpaid(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")

	_, err := f.svc.Refund(context.Background(), &RefundBookingRequest{
		BookingID:   booking.ID,
		Amount:      decimal.NewFromInt(1000),
		ProcessedBy: "admin",
	})
	assert.ErrorIs(t, err, domain.ErrRefundFailed)
}

func TestBookingRefundWebhookDuplicate(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	refunded, err := f.svc.Refund(ctx, &RefundBookingRequest{
		BookingID:   booking.ID,
		Amount:      decimal.NewFromInt(10000),
		Reason:      "cancellation",
		ProcessedBy: "admin",
	})
	require.NoError(t, err)
	require.Len(t, refunded.Refunds, 1)

	// The gateway's refund webhook lands afterwards with the same refund id
	applied, err := f.svc.ApplyGatewayEvent(ctx, &GatewayEvent{
		EventID:   "evt_refund",
		Kind:      domain.PaymentEventRefundProcessed,
		BookingID: booking.ID,
		RefundID:  refunded.Refunds[0].RefundID,
		Amount:    decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.Len(t, applied.Refunds, 1)
}

func TestBookingCheckInFlow(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	booking := f.create(t, "2026-10-01", "2026-10-03")

	// Check-in requires a captured payment
	_, err := f.svc.CheckIn(ctx, booking.ID, "reception")
	assert.Error(t, err)

	f.confirm(t, booking, "pay_001")

	checkedIn, err := f.svc.CheckIn(ctx, booking.ID, "reception")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCheckedIn, checkedIn.Status)
	assert.Equal(t, "reception", checkedIn.CheckedInBy)
	require.NotNil(t, checkedIn.ActualCheckIn)
	assert.Equal(t, f.clock, *checkedIn.ActualCheckIn)

	checkedOut, err := f.svc.CheckOut(ctx, booking.ID, "reception")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCheckedOut, checkedOut.Status)
	require.NotNil(t, checkedOut.ActualCheckOut)

	completed, err := f.svc.Complete(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, completed.Status)

	// A completed booking cannot be cancelled
	_, err = f.svc.Cancel(ctx, &CancelBookingRequest{BookingID: booking.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestBookingCheckOutBeforeCheckIn(t *testing.T) {
	f := newBookingFixture(t)

	booking := f.create(t, "2026-10-01", "2026-10-03")
	f.confirm(t, booking, "pay_001")

	_, err := f.svc.CheckOut(context.Background(), booking.ID, "reception")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestBookingExpirePending(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first := f.create(t, "2026-10-01", "2026-10-03")
	second := f.create(t, "2026-10-05", "2026-10-07")
	confirmed := f.create(t, "2026-10-10", "2026-10-12")
	f.confirm(t, confirmed, "pay_003")

	f.advance(16 * time.Minute)

	count, err := f.svc.ExpirePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []string{first.ID, second.ID} {
		stored, err := f.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
		assert.Equal(t, "hold expired", stored.CancellationReason)
	}

	states := f.dayStates(t, first.Range)
	assert.Equal(t, []domain.DayState{domain.DayStateFree, domain.DayStateFree}, states)

	// The confirmed booking is untouched
	stored, err := f.bookings.GetByID(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.Status)

	waitForPublish(t, f.publisher, domain.NotificationBookingExpired, 2)

	// A second sweep finds nothing
	count, err = f.svc.ExpirePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
