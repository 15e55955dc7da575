package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// PostgresPriceRepository implements PriceRepository using PostgreSQL with
// pgxpool. One row per (room, date) that carries an explicit price; days
// without a row fall back to the room base price at read time.
type PostgresPriceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPriceRepository creates a new PostgresPriceRepository.
func NewPostgresPriceRepository(pool *pgxpool.Pool) *PostgresPriceRepository {
	return &PostgresPriceRepository{pool: pool}
}

// GetRange returns the explicit price rows inside rng, ascending by date.
func (r *PostgresPriceRepository) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.price.get_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	query := `
		SELECT room_id, price_date, price, reason, updated_by, updated_at
		FROM day_prices
		WHERE room_id = $1 AND price_date >= $2 AND price_date < $3
		ORDER BY price_date ASC
	`

	rows, err := r.pool.Query(ctx, query, roomID, rng.CheckIn, rng.CheckOut)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}
	defer rows.Close()

	var records []domain.PriceRecord
	for rows.Next() {
		record, err := scanPrice(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

// SetDay upserts the price for a single day.
func (r *PostgresPriceRepository) SetDay(ctx context.Context, record *domain.PriceRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.price.set_day")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", record.RoomID),
		attribute.String("date", record.Date.Format(domain.DateLayout)),
	)

	query := `
		INSERT INTO day_prices (room_id, price_date, price, reason, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, price_date) DO UPDATE SET
			price = EXCLUDED.price,
			reason = EXCLUDED.reason,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		record.RoomID,
		record.Date,
		record.Price.String(),
		string(record.Reason),
		nullString(record.UpdatedBy),
		time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set day price: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetRange replaces every explicit price inside rng in one transaction. Old
// rows in the range are removed first so the supplied records become the
// whole truth for those days.
func (r *PostgresPriceRepository) SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.price.set_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
		attribute.Int("count", len(records)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM day_prices WHERE room_id = $1 AND price_date >= $2 AND price_date < $3`,
		roomID, rng.CheckIn, rng.CheckOut,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear price range: %w", err)
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(
			`INSERT INTO day_prices (room_id, price_date, price, reason, updated_by, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			roomID,
			record.Date,
			record.Price.String(),
			string(record.Reason),
			nullString(record.UpdatedBy),
			now,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert price range: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit price range: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// scanPrice scans a row into a PriceRecord.
func scanPrice(row pgx.Row) (domain.PriceRecord, error) {
	var (
		record    domain.PriceRecord
		price     string
		reason    string
		updatedBy *string
	)

	err := row.Scan(
		&record.RoomID,
		&record.Date,
		&price,
		&reason,
		&updatedBy,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PriceRecord{}, err
		}
		return domain.PriceRecord{}, fmt.Errorf("failed to scan price: %w", err)
	}

	record.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.PriceRecord{}, fmt.Errorf("failed to parse price: %w", err)
	}
	record.Reason = domain.PriceReason(reason)
	if updatedBy != nil {
		record.UpdatedBy = *updatedBy
	}

	return record, nil
}

// Ensure PostgresPriceRepository implements PriceRepository
var _ PriceRepository = (*PostgresPriceRepository)(nil)
