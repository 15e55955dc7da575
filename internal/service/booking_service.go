package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/logger"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// CreateBookingRequest carries the inputs for opening a new booking.
type CreateBookingRequest struct {
	RoomID          string
	CheckIn         string
	CheckOut        string
	Guest           domain.GuestDetails
	SpecialRequests string
	Notes           string
}

// PaymentCallback carries the synchronous payment callback fields the guest's
// browser posts back after checkout.
type PaymentCallback struct {
	BookingID string
	OrderID   string
	PaymentID string
	Signature string
}

// GatewayEvent is a parsed webhook event. The handler verifies the webhook
// signature before handing the event to the service.
type GatewayEvent struct {
	EventID   string
	Kind      domain.PaymentEventKind
	BookingID string
	OrderID   string
	PaymentID string
	RefundID  string
	Amount    decimal.Decimal
}

// CancelBookingRequest carries the inputs for cancelling a booking. When
// Refund is set and a payment was captured, the remaining refundable balance
// is refunded at the gateway as part of the cancellation.
type CancelBookingRequest struct {
	BookingID   string
	Reason      string
	CancelledBy string
	// SkipRefund suppresses the automatic refund of a paid booking, for
	// cancellations where policy withholds the payment.
	SkipRefund bool
}

// RefundBookingRequest carries the inputs for an operator-initiated refund.
type RefundBookingRequest struct {
	BookingID   string
	Amount      decimal.Decimal
	Reason      string
	ProcessedBy string
}

// BookingService orchestrates the booking lifecycle: hold, payment, calendar
// promotion, stay tracking, cancellation and refunds.
type BookingService interface {
	// Create holds the requested nights, freezes the price snapshot and opens
	// a payment order. The booking starts PENDING with a TTL-bounded hold.
	Create(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error)

	// Get returns a booking by id.
	Get(ctx context.Context, id string) (*domain.Booking, error)

	// GetByReference returns a booking by its human-readable reference.
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)

	// ConfirmPayment verifies a synchronous payment callback and promotes the
	// booking to CONFIRMED. It is idempotent against the webhook path.
	ConfirmPayment(ctx context.Context, callback *PaymentCallback) (*domain.Booking, error)

	// ApplyGatewayEvent applies a verified webhook event. Duplicate events
	// are suppressed by the idempotency ledger and return the booking
	// unchanged.
	ApplyGatewayEvent(ctx context.Context, event *GatewayEvent) (*domain.Booking, error)

	// Cancel cancels a booking, frees its nights and optionally refunds the
	// captured payment.
	Cancel(ctx context.Context, req *CancelBookingRequest) (*domain.Booking, error)

	// Refund refunds amount at the gateway and records it against the
	// booking. The cumulative refund never exceeds the captured total.
	Refund(ctx context.Context, req *RefundBookingRequest) (*domain.Booking, error)

	// CheckIn marks the guest as arrived.
	CheckIn(ctx context.Context, bookingID, staff string) (*domain.Booking, error)

	// CheckOut marks the guest as departed.
	CheckOut(ctx context.Context, bookingID, staff string) (*domain.Booking, error)

	// Complete closes out a checked-out booking.
	Complete(ctx context.Context, bookingID string) (*domain.Booking, error)

	// ExpirePending cancels PENDING bookings whose hold TTL has passed and
	// frees their nights. It returns the number of bookings expired.
	ExpirePending(ctx context.Context, limit int) (int, error)
}

// bookingService implements BookingService.
type bookingService struct {
	bookingRepo  repository.BookingRepository
	eventRepo    repository.PaymentEventRepository
	roomRepo     repository.RoomRepository
	availability AvailabilityService
	pricing      PricingService
	gateway      gateway.PaymentGateway
	publisher    EventPublisher
	currency     string
	log          *logger.Logger
	now          func() time.Time
}

// BookingServiceConfig contains configuration for the booking service.
type BookingServiceConfig struct {
	BookingRepo  repository.BookingRepository
	EventRepo    repository.PaymentEventRepository
	RoomRepo     repository.RoomRepository
	Availability AvailabilityService
	Pricing      PricingService
	Gateway      gateway.PaymentGateway
	Publisher    EventPublisher
	Currency     string
}

// NewBookingService creates a new booking service.
func NewBookingService(cfg *BookingServiceConfig) (BookingService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("booking service config is required")
	}
	if cfg.BookingRepo == nil || cfg.EventRepo == nil || cfg.RoomRepo == nil {
		return nil, fmt.Errorf("booking, payment event and room repositories are required")
	}
	if cfg.Availability == nil || cfg.Pricing == nil {
		return nil, fmt.Errorf("availability and pricing services are required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}

	return &bookingService{
		bookingRepo:  cfg.BookingRepo,
		eventRepo:    cfg.EventRepo,
		roomRepo:     cfg.RoomRepo,
		availability: cfg.Availability,
		pricing:      cfg.Pricing,
		gateway:      cfg.Gateway,
		publisher:    publisher,
		currency:     currency,
		log:          logger.Get(),
		now:          time.Now,
	}, nil
}

// Create holds the requested nights, freezes the price snapshot and opens a
// payment order.
func (s *bookingService) Create(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "nil request")
		return nil, fmt.Errorf("create booking request is required")
	}

	span.SetAttributes(
		attribute.String("room_id", req.RoomID),
		attribute.String("check_in", req.CheckIn),
		attribute.String("check_out", req.CheckOut),
	)

	rng, err := domain.NewDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return nil, err
	}
	if err := rng.Validate(s.now()); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return nil, err
	}
	if err := validateGuest(&req.Guest); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, req.RoomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !room.Active {
		span.SetStatus(codes.Error, "room inactive")
		return nil, fmt.Errorf("room %s is not open for booking", room.ID)
	}
	if req.Guest.NumberOfGuests > room.Capacity {
		span.SetStatus(codes.Error, "over capacity")
		return nil, fmt.Errorf("room %s sleeps %d, got %d guests", room.ID, room.Capacity, req.Guest.NumberOfGuests)
	}

	rates, total, err := s.pricing.Snapshot(ctx, req.RoomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	bookingID := uuid.New().String()
	reference := domain.NewBookingReference()

	token, err := s.availability.Hold(ctx, req.RoomID, rng, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, &gateway.OrderRequest{
		BookingID: bookingID,
		Reference: reference,
		Amount:    total,
		Currency:  s.currency,
		Notes: map[string]string{
			"room_id":   req.RoomID,
			"check_in":  req.CheckIn,
			"check_out": req.CheckOut,
		},
	})
	if err != nil {
		s.releaseNights(ctx, req.RoomID, rng, bookingID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	createdAt := s.now()
	booking := &domain.Booking{
		ID:              bookingID,
		Reference:       reference,
		RoomID:          req.RoomID,
		Range:           rng,
		GuestDetails:    req.Guest,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		TotalAmount:     total,
		Currency:        s.currency,
		PriceBreakdown:  rates,
		OrderID:         order.OrderID,
		HoldExpiresAt:   token.ExpiresAt,
		SpecialRequests: req.SpecialRequests,
		Notes:           req.Notes,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.releaseNights(ctx, req.RoomID, rng, bookingID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.publishAsync(booking, s.publisher.PublishBookingCreated)

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("reference", booking.Reference),
		attribute.String("total", total.String()),
	)
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Get returns a booking by id.
func (s *bookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByReference returns a booking by its human-readable reference.
func (s *bookingService) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_by_reference")
	defer span.End()

	span.SetAttributes(attribute.String("reference", reference))

	booking, err := s.bookingRepo.GetByReference(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ConfirmPayment verifies a synchronous payment callback and promotes the
// booking to CONFIRMED.
func (s *bookingService) ConfirmPayment(ctx context.Context, callback *PaymentCallback) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm_payment")
	defer span.End()

	if callback == nil {
		span.SetStatus(codes.Error, "nil callback")
		return nil, fmt.Errorf("payment callback is required")
	}

	span.SetAttributes(
		attribute.String("booking_id", callback.BookingID),
		attribute.String("order_id", callback.OrderID),
	)

	booking, err := s.bookingRepo.GetByID(ctx, callback.BookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if booking.OrderID != callback.OrderID {
		span.SetStatus(codes.Error, "order mismatch")
		return nil, domain.ErrPaymentVerificationFailed
	}

	if err := s.gateway.VerifySignature(&gateway.SignatureParams{
		OrderID:   callback.OrderID,
		PaymentID: callback.PaymentID,
		Signature: callback.Signature,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking, err = s.applyCapture(ctx, booking, &domain.PaymentEvent{
		BookingID:    booking.ID,
		Kind:         domain.PaymentEventCaptured,
		TargetStatus: domain.BookingStatusConfirmed,
		OrderID:      callback.OrderID,
		PaymentID:    callback.PaymentID,
		ProcessedAt:  s.now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ApplyGatewayEvent applies a verified webhook event.
func (s *bookingService) ApplyGatewayEvent(ctx context.Context, event *GatewayEvent) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.apply_gateway_event")
	defer span.End()

	if event == nil {
		span.SetStatus(codes.Error, "nil event")
		return nil, fmt.Errorf("gateway event is required")
	}

	span.SetAttributes(
		attribute.String("event_id", event.EventID),
		attribute.String("kind", string(event.Kind)),
		attribute.String("order_id", event.OrderID),
	)

	booking, err := s.lookupForEvent(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking_id", booking.ID))

	switch event.Kind {
	case domain.PaymentEventCaptured:
		booking, err = s.applyCapture(ctx, booking, &domain.PaymentEvent{
			EventID:      event.EventID,
			BookingID:    booking.ID,
			Kind:         event.Kind,
			TargetStatus: domain.BookingStatusConfirmed,
			OrderID:      event.OrderID,
			PaymentID:    event.PaymentID,
			ProcessedAt:  s.now(),
		})
	case domain.PaymentEventFailed:
		booking, err = s.applyFailure(ctx, booking, event)
	case domain.PaymentEventRefundProcessed:
		booking, err = s.applyRefund(ctx, booking, &domain.RefundDetail{
			RefundID:    event.RefundID,
			Amount:      event.Amount,
			Reason:      "gateway refund notification",
			ProcessedBy: s.gateway.Name(),
			ProcessedAt: s.now(),
		}, event.EventID)
	default:
		err = fmt.Errorf("unknown gateway event kind %q", event.Kind)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Cancel cancels a booking and frees its nights. Cancelling a paid booking
// initiates a refund of the remaining refundable amount unless the request
// skips it.
func (s *bookingService) Cancel(ctx context.Context, req *CancelBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "nil request")
		return nil, fmt.Errorf("cancel booking request is required")
	}

	span.SetAttributes(
		attribute.String("booking_id", req.BookingID),
		attribute.Bool("skip_refund", req.SkipRefund),
	)

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if booking.Status == domain.BookingStatusCancelled {
		span.SetStatus(codes.Ok, "already cancelled")
		return booking, nil
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		err := domain.NewStateTransitionError(booking.ID, booking.Status, domain.BookingStatusCancelled)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if _, err := s.availability.Release(ctx, booking.RoomID, booking.Range, booking.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to release nights: %w", err)
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = req.Reason
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.publishAsync(booking, s.publisher.PublishBookingCancelled)

	if booking.IsPaid() && !req.SkipRefund {
		refunded, err := s.Refund(ctx, &RefundBookingRequest{
			BookingID:   booking.ID,
			Amount:      booking.RemainingRefundable(),
			Reason:      req.Reason,
			ProcessedBy: req.CancelledBy,
		})
		if err != nil {
			// The cancellation stands; the refund can be retried on its own.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return booking, err
		}
		booking = refunded
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Refund refunds amount at the gateway and records it against the booking.
func (s *bookingService) Refund(ctx context.Context, req *RefundBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.refund")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "nil request")
		return nil, fmt.Errorf("refund booking request is required")
	}

	span.SetAttributes(
		attribute.String("booking_id", req.BookingID),
		attribute.String("amount", req.Amount.String()),
	)

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.IsPaid() {
		span.SetStatus(codes.Error, "not paid")
		return nil, fmt.Errorf("booking %s has no captured payment: %w", booking.ID, domain.ErrRefundFailed)
	}
	if !req.Amount.IsPositive() {
		span.SetStatus(codes.Error, "non-positive amount")
		return nil, fmt.Errorf("refund amount must be positive: %w", domain.ErrRefundFailed)
	}
	if req.Amount.GreaterThan(booking.RemainingRefundable()) {
		span.SetStatus(codes.Error, "over refundable balance")
		return nil, fmt.Errorf("refund %s exceeds remaining %s: %w",
			req.Amount, booking.RemainingRefundable(), domain.ErrRefundFailed)
	}

	ref, err := s.gateway.Refund(ctx, &gateway.RefundRequest{
		PaymentID: booking.PaymentID,
		Amount:    req.Amount,
		Notes: map[string]string{
			"booking_id": booking.ID,
			"reason":     req.Reason,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking, err = s.applyRefund(ctx, booking, &domain.RefundDetail{
		RefundID:    ref.RefundID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedBy: req.ProcessedBy,
		ProcessedAt: s.now(),
	}, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// CheckIn marks the guest as arrived.
func (s *bookingService) CheckIn(ctx context.Context, bookingID, staff string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check_in")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCheckedIn) {
		err := domain.NewStateTransitionError(booking.ID, booking.Status, domain.BookingStatusCheckedIn)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.IsPaid() {
		span.SetStatus(codes.Error, "not paid")
		return nil, fmt.Errorf("booking %s is not paid: %w", booking.ID, domain.ErrInvalidStateTransition)
	}

	now := s.now()
	booking.Status = domain.BookingStatusCheckedIn
	booking.ActualCheckIn = &now
	booking.CheckedInBy = staff
	booking.UpdatedAt = now
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.publishAsync(booking, s.publisher.PublishBookingCheckedIn)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// CheckOut marks the guest as departed.
func (s *bookingService) CheckOut(ctx context.Context, bookingID, staff string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check_out")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCheckedOut) {
		err := domain.NewStateTransitionError(booking.ID, booking.Status, domain.BookingStatusCheckedOut)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	booking.Status = domain.BookingStatusCheckedOut
	booking.ActualCheckOut = &now
	booking.CheckedOutBy = staff
	booking.UpdatedAt = now
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.publishAsync(booking, s.publisher.PublishBookingCheckedOut)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Complete closes out a checked-out booking.
func (s *bookingService) Complete(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.complete")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusCompleted) {
		err := domain.NewStateTransitionError(booking.ID, booking.Status, domain.BookingStatusCompleted)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking.Status = domain.BookingStatusCompleted
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ExpirePending cancels PENDING bookings whose hold TTL has passed.
func (s *bookingService) ExpirePending(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.expire_pending")
	defer span.End()

	now := s.now()
	expired, err := s.bookingRepo.GetExpiredPending(ctx, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	count := 0
	for _, booking := range expired {
		if err := s.expireOne(ctx, booking); err != nil {
			s.log.Warn("failed to expire booking",
				zap.String("booking_id", booking.ID),
				zap.Error(err))
			continue
		}
		count++
	}

	span.SetAttributes(attribute.Int("expired", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

func (s *bookingService) expireOne(ctx context.Context, booking *domain.Booking) error {
	if _, err := s.availability.Release(ctx, booking.RoomID, booking.Range, booking.ID); err != nil {
		return fmt.Errorf("failed to release nights: %w", err)
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = "hold expired"
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return err
	}

	s.publishAsync(booking, s.publisher.PublishBookingExpired)
	return nil
}

// applyCapture promotes a booking to CONFIRMED after a verified payment. The
// ledger makes the callback and webhook paths suppress each other.
func (s *bookingService) applyCapture(ctx context.Context, booking *domain.Booking, event *domain.PaymentEvent) (*domain.Booking, error) {
	if booking.Status == domain.BookingStatusConfirmed {
		return booking, nil
	}
	if !booking.Status.CanTransitionTo(domain.BookingStatusConfirmed) {
		return nil, domain.NewStateTransitionError(booking.ID, booking.Status, domain.BookingStatusConfirmed)
	}

	inserted, err := s.eventRepo.Record(ctx, event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return booking, nil
	}

	if err := s.availability.Confirm(ctx, booking.RoomID, booking.Range, booking.ID); err != nil {
		if errors.Is(err, domain.ErrHoldExpired) {
			// The payment landed after the hold lapsed and the nights may be
			// gone. Cancel the booking; the captured amount needs a refund.
			s.log.Warn("payment captured after hold expiry",
				zap.String("booking_id", booking.ID),
				zap.String("payment_id", event.PaymentID))
			booking.Status = domain.BookingStatusCancelled
			booking.CancellationReason = "hold expired before payment capture"
			booking.PaymentStatus = domain.PaymentStatusPaid
			booking.PaymentID = event.PaymentID
			booking.UpdatedAt = s.now()
			if updateErr := s.bookingRepo.Update(ctx, booking); updateErr != nil {
				return nil, updateErr
			}
			s.publishAsync(booking, s.publisher.PublishBookingExpired)
			return nil, domain.ErrHoldExpired
		}
		return nil, err
	}

	booking.Status = domain.BookingStatusConfirmed
	booking.PaymentStatus = domain.PaymentStatusPaid
	booking.PaymentID = event.PaymentID
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.publishAsync(booking, s.publisher.PublishBookingConfirmed)
	return booking, nil
}

// applyFailure cancels a pending booking whose payment failed at the gateway.
func (s *bookingService) applyFailure(ctx context.Context, booking *domain.Booking, event *GatewayEvent) (*domain.Booking, error) {
	if booking.Status != domain.BookingStatusPending {
		// The failure refers to an order that already resolved another way.
		return booking, nil
	}

	inserted, err := s.eventRepo.Record(ctx, &domain.PaymentEvent{
		EventID:      event.EventID,
		BookingID:    booking.ID,
		Kind:         event.Kind,
		TargetStatus: domain.BookingStatusCancelled,
		OrderID:      event.OrderID,
		PaymentID:    event.PaymentID,
		ProcessedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return booking, nil
	}

	if _, err := s.availability.Release(ctx, booking.RoomID, booking.Range, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to release nights: %w", err)
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = "payment failed"
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.publishAsync(booking, s.publisher.PublishBookingCancelled)
	return booking, nil
}

// applyRefund records a processed refund against the booking, holding the
// cumulative total to the captured amount.
func (s *bookingService) applyRefund(ctx context.Context, booking *domain.Booking, refund *domain.RefundDetail, eventID string) (*domain.Booking, error) {
	if !booking.IsPaid() {
		return nil, fmt.Errorf("booking %s has no captured payment: %w", booking.ID, domain.ErrRefundFailed)
	}
	if refund.Amount.GreaterThan(booking.RemainingRefundable()) {
		return nil, fmt.Errorf("refund %s exceeds remaining %s: %w",
			refund.Amount, booking.RemainingRefundable(), domain.ErrRefundFailed)
	}

	inserted, err := s.eventRepo.Record(ctx, &domain.PaymentEvent{
		EventID:      eventID,
		BookingID:    booking.ID,
		Kind:         domain.PaymentEventRefundProcessed,
		TargetStatus: domain.BookingStatusRefunded,
		PaymentID:    booking.PaymentID,
		RefundID:     refund.RefundID,
		ProcessedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return booking, nil
	}

	booking.Refunds = append(booking.Refunds, *refund)
	if booking.RemainingRefundable().IsZero() {
		booking.PaymentStatus = domain.PaymentStatusRefunded
		if booking.Status.CanTransitionTo(domain.BookingStatusRefunded) {
			booking.Status = domain.BookingStatusRefunded
		}
	} else {
		booking.PaymentStatus = domain.PaymentStatusPartialRefund
	}
	booking.UpdatedAt = s.now()
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.publishRefundAsync(booking, refund)
	return booking, nil
}

// lookupForEvent resolves the booking a webhook event refers to, by booking
// id when present, otherwise by the gateway order id.
func (s *bookingService) lookupForEvent(ctx context.Context, event *GatewayEvent) (*domain.Booking, error) {
	if event.BookingID != "" {
		return s.bookingRepo.GetByID(ctx, event.BookingID)
	}
	if event.OrderID != "" {
		return s.bookingRepo.GetByOrderID(ctx, event.OrderID)
	}
	return nil, fmt.Errorf("gateway event carries neither booking id nor order id: %w", domain.ErrBookingNotFound)
}

func (s *bookingService) releaseNights(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) {
	if _, err := s.availability.Release(ctx, roomID, rng, bookingID); err != nil {
		s.log.Warn("failed to release nights after aborted create",
			zap.String("booking_id", bookingID),
			zap.String("room_id", roomID),
			zap.Error(err))
	}
}

// publishAsync fires a notification without blocking the request path.
func (s *bookingService) publishAsync(booking *domain.Booking, publish func(context.Context, *domain.Booking) error) {
	b := *booking
	go func() {
		if err := publish(context.Background(), &b); err != nil {
			s.log.Warn("failed to publish booking event",
				zap.String("booking_id", b.ID),
				zap.Error(err))
		}
	}()
}

func (s *bookingService) publishRefundAsync(booking *domain.Booking, refund *domain.RefundDetail) {
	b := *booking
	r := *refund
	go func() {
		if err := s.publisher.PublishRefundRecorded(context.Background(), &b, &r); err != nil {
			s.log.Warn("failed to publish refund event",
				zap.String("booking_id", b.ID),
				zap.Error(err))
		}
	}()
}

func validateGuest(guest *domain.GuestDetails) error {
	if guest.Name == "" {
		return fmt.Errorf("guest name is required")
	}
	if guest.Email == "" {
		return fmt.Errorf("guest email is required")
	}
	if guest.NumberOfGuests <= 0 {
		return fmt.Errorf("number of guests must be positive")
	}
	return nil
}
