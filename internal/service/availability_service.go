package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// AvailabilityService defines the interface for the occupancy calendar.
type AvailabilityService interface {
	// QueryRange returns the per-night state of a room over rng. Nights
	// with no record come back FREE; a lapsed hold is reported FREE even
	// before the sweeper has reclaimed it.
	QueryRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DayRecord, error)

	// Hold atomically claims every night in rng for bookingID with the
	// configured TTL.
	Hold(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (*domain.HoldToken, error)

	// Confirm promotes a live hold to BOOKED.
	Confirm(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) error

	// Release frees the nights owned by bookingID. It is idempotent.
	Release(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (int, error)

	// Block marks free nights BLOCKED for administrative reasons.
	Block(ctx context.Context, roomID string, rng domain.DateRange, reason domain.BlockReason) error

	// Unblock returns BLOCKED nights to FREE.
	Unblock(ctx context.Context, roomID string, rng domain.DateRange) (int, error)
}

// availabilityService implements AvailabilityService.
type availabilityService struct {
	calendarRepo repository.CalendarRepository
	roomRepo     repository.RoomRepository
	holdTTL      time.Duration
	now          func() time.Time
}

// AvailabilityServiceConfig contains configuration for the availability
// service.
type AvailabilityServiceConfig struct {
	HoldTTL time.Duration
}

// NewAvailabilityService creates a new availability service.
func NewAvailabilityService(calendarRepo repository.CalendarRepository, roomRepo repository.RoomRepository, cfg *AvailabilityServiceConfig) AvailabilityService {
	ttl := 15 * time.Minute
	if cfg != nil && cfg.HoldTTL > 0 {
		ttl = cfg.HoldTTL
	}
	return &availabilityService{
		calendarRepo: calendarRepo,
		roomRepo:     roomRepo,
		holdTTL:      ttl,
		now:          time.Now,
	}
}

// QueryRange returns the per-night state of a room over rng.
func (s *availabilityService) QueryRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DayRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.query_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	if err := rng.Validate(time.Time{}); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return nil, err
	}
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, err := s.calendarRepo.GetRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Report lapsed holds as free before the sweeper catches up
	now := s.now()
	for i := range records {
		if records[i].State == domain.DayStateHeld && records[i].IsFree(now) {
			records[i].State = domain.DayStateFree
			records[i].BookingID = ""
			records[i].HoldExpiresAt = time.Time{}
		}
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

// Hold atomically claims every night in rng for bookingID.
func (s *availabilityService) Hold(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (*domain.HoldToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.hold")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
		attribute.String("range", rng.String()),
	)

	if err := rng.Validate(s.now()); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return nil, err
	}
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	expiresAt := s.now().Add(s.holdTTL)
	token, err := s.calendarRepo.HoldRange(ctx, roomID, rng, bookingID, expiresAt)
	if err != nil {
		if conflict, ok := domain.IsAvailabilityConflict(err); ok {
			span.SetAttributes(attribute.Int("conflict_nights", len(conflict.Dates)))
			span.SetStatus(codes.Error, "availability conflict")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Confirm promotes a live hold to BOOKED.
func (s *availabilityService) Confirm(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.confirm")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
	)

	if err := s.calendarRepo.ConfirmRange(ctx, roomID, rng, bookingID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Release frees the nights owned by bookingID.
func (s *availabilityService) Release(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.release")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
	)

	freed, err := s.calendarRepo.ReleaseRange(ctx, roomID, rng, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("freed", freed))
	span.SetStatus(codes.Ok, "")
	return freed, nil
}

// Block marks free nights BLOCKED for administrative reasons.
func (s *availabilityService) Block(ctx context.Context, roomID string, rng domain.DateRange, reason domain.BlockReason) error {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.block")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
		attribute.String("reason", string(reason)),
	)

	if err := rng.Validate(time.Time{}); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return err
	}
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.calendarRepo.BlockRange(ctx, roomID, rng, reason); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Unblock returns BLOCKED nights to FREE.
func (s *availabilityService) Unblock(ctx context.Context, roomID string, rng domain.DateRange) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.unblock")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	if err := rng.Validate(time.Time{}); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return 0, err
	}

	unblocked, err := s.calendarRepo.UnblockRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("unblocked", unblocked))
	span.SetStatus(codes.Ok, "")
	return unblocked, nil
}
