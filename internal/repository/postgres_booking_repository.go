package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL
// with pgxpool. Guest details, the price snapshot and refund records are
// stored as JSONB documents on the booking row.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

const bookingColumns = `
	id, reference, room_id, check_in, check_out, guest_details,
	status, payment_status, total_amount, currency, price_breakdown,
	order_id, payment_id, refunds, hold_expires_at,
	actual_check_in, actual_check_out, checked_in_by, checked_out_by,
	cancellation_reason, special_requests, notes, created_at, updated_at
`

// Create inserts a new booking row.
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("room_id", booking.RoomID),
	)

	guestDetails, err := json.Marshal(booking.GuestDetails)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal guest details: %w", err)
	}
	breakdown, err := json.Marshal(booking.PriceBreakdown)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal price breakdown: %w", err)
	}
	refunds, err := json.Marshal(booking.Refunds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal refunds: %w", err)
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23, $24
		)
	`

	_, err = r.pool.Exec(ctx, query,
		booking.ID,
		booking.Reference,
		booking.RoomID,
		booking.Range.CheckIn,
		booking.Range.CheckOut,
		guestDetails,
		booking.Status.String(),
		string(booking.PaymentStatus),
		booking.TotalAmount.String(),
		booking.Currency,
		breakdown,
		nullString(booking.OrderID),
		nullString(booking.PaymentID),
		refunds,
		nullTime(booking.HoldExpiresAt),
		booking.ActualCheckIn,
		booking.ActualCheckOut,
		nullString(booking.CheckedInBy),
		nullString(booking.CheckedOutBy),
		nullString(booking.CancellationReason),
		nullString(booking.SpecialRequests),
		nullString(booking.Notes),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID.
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))
	return r.getOne(ctx, span, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByReference retrieves a booking by its human-readable reference.
func (r *PostgresBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_reference")
	defer span.End()

	span.SetAttributes(attribute.String("reference", reference))
	return r.getOne(ctx, span, `SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`, reference)
}

// GetByOrderID retrieves a booking by its gateway order id.
func (r *PostgresBookingRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_order_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))
	return r.getOne(ctx, span, `SELECT `+bookingColumns+` FROM bookings WHERE order_id = $1`, orderID)
}

func (r *PostgresBookingRepository) getOne(ctx context.Context, span trace.Span, query string, arg interface{}) (*domain.Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Update rewrites the mutable columns of a booking row.
func (r *PostgresBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("status", booking.Status.String()),
	)

	refunds, err := json.Marshal(booking.Refunds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal refunds: %w", err)
	}

	query := `
		UPDATE bookings SET
			status = $2,
			payment_status = $3,
			order_id = $4,
			payment_id = $5,
			refunds = $6,
			hold_expires_at = $7,
			actual_check_in = $8,
			actual_check_out = $9,
			checked_in_by = $10,
			checked_out_by = $11,
			cancellation_reason = $12,
			notes = $13,
			updated_at = $14
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.Status.String(),
		string(booking.PaymentStatus),
		nullString(booking.OrderID),
		nullString(booking.PaymentID),
		refunds,
		nullTime(booking.HoldExpiresAt),
		booking.ActualCheckIn,
		booking.ActualCheckOut,
		nullString(booking.CheckedInBy),
		nullString(booking.CheckedOutBy),
		nullString(booking.CancellationReason),
		nullString(booking.Notes),
		time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetExpiredPending returns PENDING bookings whose hold lapsed before now.
func (r *PostgresBookingRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_expired_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1
			AND hold_expires_at IS NOT NULL
			AND hold_expires_at < $2
		ORDER BY hold_expires_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, domain.BookingStatusPending.String(), now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get expired pending bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// scanBooking scans a row into a Booking struct.
func scanBooking(row pgx.Row) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		status             string
		paymentStatus      string
		totalAmount        string
		guestDetails       []byte
		breakdown          []byte
		refunds            []byte
		orderID            *string
		paymentID          *string
		holdExpiresAt      *time.Time
		checkedInBy        *string
		checkedOutBy       *string
		cancellationReason *string
		specialRequests    *string
		notes              *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.RoomID,
		&booking.Range.CheckIn,
		&booking.Range.CheckOut,
		&guestDetails,
		&status,
		&paymentStatus,
		&totalAmount,
		&booking.Currency,
		&breakdown,
		&orderID,
		&paymentID,
		&refunds,
		&holdExpiresAt,
		&booking.ActualCheckIn,
		&booking.ActualCheckOut,
		&checkedInBy,
		&checkedOutBy,
		&cancellationReason,
		&specialRequests,
		&notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	booking.Status = domain.BookingStatus(status)
	booking.PaymentStatus = domain.PaymentStatus(paymentStatus)

	booking.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	if err := json.Unmarshal(guestDetails, &booking.GuestDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guest details: %w", err)
	}
	if err := json.Unmarshal(breakdown, &booking.PriceBreakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price breakdown: %w", err)
	}
	if len(refunds) > 0 {
		if err := json.Unmarshal(refunds, &booking.Refunds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal refunds: %w", err)
		}
	}

	if orderID != nil {
		booking.OrderID = *orderID
	}
	if paymentID != nil {
		booking.PaymentID = *paymentID
	}
	if holdExpiresAt != nil {
		booking.HoldExpiresAt = *holdExpiresAt
	}
	if checkedInBy != nil {
		booking.CheckedInBy = *checkedInBy
	}
	if checkedOutBy != nil {
		booking.CheckedOutBy = *checkedOutBy
	}
	if cancellationReason != nil {
		booking.CancellationReason = *cancellationReason
	}
	if specialRequests != nil {
		booking.SpecialRequests = *specialRequests
	}
	if notes != nil {
		booking.Notes = *notes
	}

	return booking, nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Helper function to convert zero time to nil pointer
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Ensure PostgresBookingRepository implements BookingRepository
var _ BookingRepository = (*PostgresBookingRepository)(nil)
