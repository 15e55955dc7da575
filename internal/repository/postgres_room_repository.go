package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// PostgresRoomRepository implements RoomRepository using PostgreSQL with
// pgxpool. The engine only reads rooms; administration writes them
// elsewhere.
type PostgresRoomRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoomRepository creates a new PostgresRoomRepository.
func NewPostgresRoomRepository(pool *pgxpool.Pool) *PostgresRoomRepository {
	return &PostgresRoomRepository{pool: pool}
}

// GetByID retrieves a room by its ID.
func (r *PostgresRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("room_id", id))

	query := `
		SELECT id, name, capacity, base_price, active, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`

	room := &domain.Room{}
	var basePrice string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&basePrice,
		&room.Active,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRoomNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room.BasePrice, err = decimal.NewFromString(basePrice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse base price: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return room, nil
}

// Ensure PostgresRoomRepository implements RoomRepository
var _ RoomRepository = (*PostgresRoomRepository)(nil)
