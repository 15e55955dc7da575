package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// PostgresPaymentEventRepository implements the webhook idempotency ledger
// on PostgreSQL. Uniqueness is enforced twice: on the gateway event id when
// present, and on (booking_id, target_status, refund_id) so the synchronous
// verify path and the webhook path suppress each other's duplicates while
// separate partial refunds still apply.
type PostgresPaymentEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentEventRepository creates a new PostgresPaymentEventRepository.
func NewPostgresPaymentEventRepository(pool *pgxpool.Pool) *PostgresPaymentEventRepository {
	return &PostgresPaymentEventRepository{pool: pool}
}

// Record inserts a ledger entry. It returns false when an equivalent event
// was already applied; the insert is a no-op in that case.
func (r *PostgresPaymentEventRepository) Record(ctx context.Context, event *domain.PaymentEvent) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment_event.record")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.EventID),
		attribute.String("booking_id", event.BookingID),
		attribute.String("kind", string(event.Kind)),
		attribute.String("target_status", event.TargetStatus.String()),
	)

	processedAt := event.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	query := `
		INSERT INTO payment_events (
			event_id, booking_id, kind, target_status,
			order_id, payment_id, refund_id, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		nullString(event.EventID),
		event.BookingID,
		string(event.Kind),
		event.TargetStatus.String(),
		nullString(event.OrderID),
		nullString(event.PaymentID),
		nullString(event.RefundID),
		processedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}

	inserted := result.RowsAffected() > 0
	span.SetAttributes(attribute.Bool("inserted", inserted))
	span.SetStatus(codes.Ok, "")
	return inserted, nil
}

// Ensure PostgresPaymentEventRepository implements PaymentEventRepository
var _ PaymentEventRepository = (*PostgresPaymentEventRepository)(nil)
