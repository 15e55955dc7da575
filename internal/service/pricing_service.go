package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// PricingService defines the interface for per-day pricing.
type PricingService interface {
	// GetRange returns one price per night in rng. Days without an explicit
	// price carry the room's base price with reason DEFAULT.
	GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error)

	// SetDay sets an explicit price for a single day.
	SetDay(ctx context.Context, record *domain.PriceRecord) error

	// SetRange replaces the explicit prices inside rng with the given
	// records in one shot.
	SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error

	// Snapshot resolves the nightly rates for rng and their total. The
	// result is what a booking freezes at creation time.
	Snapshot(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DailyRate, decimal.Decimal, error)
}

// pricingService implements PricingService.
type pricingService struct {
	priceRepo repository.PriceRepository
	roomRepo  repository.RoomRepository
}

// NewPricingService creates a new pricing service.
func NewPricingService(priceRepo repository.PriceRepository, roomRepo repository.RoomRepository) PricingService {
	return &pricingService{
		priceRepo: priceRepo,
		roomRepo:  roomRepo,
	}
}

// GetRange returns one price per night, base-price-filled.
func (s *pricingService) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.get_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	if err := rng.Validate(time.Time{}); err != nil {
		span.SetStatus(codes.Error, "invalid range")
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	explicit, err := s.priceRepo.GetRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byDate := make(map[string]domain.PriceRecord, len(explicit))
	for _, record := range explicit {
		byDate[record.Date.Format(domain.DateLayout)] = record
	}

	dates := rng.Dates()
	records := make([]domain.PriceRecord, 0, len(dates))
	for _, date := range dates {
		if record, ok := byDate[date.Format(domain.DateLayout)]; ok {
			records = append(records, record)
			continue
		}
		records = append(records, domain.PriceRecord{
			RoomID: roomID,
			Date:   date,
			Price:  room.BasePrice,
			Reason: domain.PriceReasonDefault,
		})
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

// SetDay sets an explicit price for a single day.
func (s *pricingService) SetDay(ctx context.Context, record *domain.PriceRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.set_day")
	defer span.End()

	if record == nil {
		span.SetStatus(codes.Error, "nil record")
		return fmt.Errorf("price record is required")
	}

	span.SetAttributes(
		attribute.String("room_id", record.RoomID),
		attribute.String("date", record.Date.Format(domain.DateLayout)),
	)

	if err := validatePriceRecord(record); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if _, err := s.roomRepo.GetByID(ctx, record.RoomID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	normalized := *record
	normalized.Date = domain.Day(record.Date)
	if err := s.priceRepo.SetDay(ctx, &normalized); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetRange replaces the explicit prices inside rng.
func (s *pricingService) SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.set_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
		attribute.Int("count", len(records)),
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

	normalized := make([]domain.PriceRecord, 0, len(records))
	for i := range records {
		record := records[i]
		record.RoomID = roomID
		record.Date = domain.Day(record.Date)
		if err := validatePriceRecord(&record); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if record.Date.Before(rng.CheckIn) || !record.Date.Before(rng.CheckOut) {
			span.SetStatus(codes.Error, "date outside range")
			return fmt.Errorf("price for %s falls outside %s", record.Date.Format(domain.DateLayout), rng)
		}
		normalized = append(normalized, record)
	}

	if err := s.priceRepo.SetRange(ctx, roomID, rng, normalized); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Snapshot resolves the nightly rates for rng and their total.
func (s *pricingService) Snapshot(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DailyRate, decimal.Decimal, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.snapshot")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	records, err := s.GetRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, decimal.Zero, err
	}

	rates := make([]domain.DailyRate, 0, len(records))
	total := decimal.Zero
	for _, record := range records {
		rates = append(rates, domain.DailyRate{Date: record.Date, Price: record.Price})
		total = total.Add(record.Price)
	}

	span.SetAttributes(attribute.String("total", total.String()))
	span.SetStatus(codes.Ok, "")
	return rates, total, nil
}

func validatePriceRecord(record *domain.PriceRecord) error {
	if record.RoomID == "" {
		return fmt.Errorf("price room id is required")
	}
	if record.Date.IsZero() {
		return fmt.Errorf("price date is required")
	}
	if !record.Price.IsPositive() {
		return fmt.Errorf("price must be positive")
	}
	switch record.Reason {
	case domain.PriceReasonDefault, domain.PriceReasonSeason, domain.PriceReasonEvent, domain.PriceReasonSpecial:
	case "":
		record.Reason = domain.PriceReasonSpecial
	default:
		return fmt.Errorf("unknown price reason %q", record.Reason)
	}
	return nil
}
