package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	pkgredis "github.com/AbinayReddy2501/prakruthihomestay/pkg/redis"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

//go:embed scripts/hold_range.lua
var holdRangeScript string

//go:embed scripts/confirm_range.lua
var confirmRangeScript string

//go:embed scripts/release_range.lua
var releaseRangeScript string

//go:embed scripts/block_range.lua
var blockRangeScript string

// Script names for caching
const (
	scriptHoldRange    = "hold_range"
	scriptConfirmRange = "confirm_range"
	scriptReleaseRange = "release_range"
	scriptBlockRange   = "block_range"
)

// RedisCalendarRepository implements CalendarRepository on Redis. Each
// (room, date) day is a hash and range operations run as Lua scripts so a
// hold claims all nights or none under concurrency.
type RedisCalendarRepository struct {
	client *pkgredis.Client
	now    func() time.Time
}

// NewRedisCalendarRepository creates a new RedisCalendarRepository.
func NewRedisCalendarRepository(client *pkgredis.Client) *RedisCalendarRepository {
	return &RedisCalendarRepository{client: client, now: time.Now}
}

// LoadScripts loads all Lua scripts into Redis.
func (r *RedisCalendarRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptHoldRange:    holdRangeScript,
		scriptConfirmRange: confirmRangeScript,
		scriptReleaseRange: releaseRangeScript,
		scriptBlockRange:   blockRangeScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}

	return nil
}

func dayKey(roomID string, date time.Time) string {
	return fmt.Sprintf("cal:%s:%s", roomID, date.Format(domain.DateLayout))
}

func rangeKeys(roomID string, rng domain.DateRange) ([]string, []time.Time) {
	dates := rng.Dates()
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = dayKey(roomID, d)
	}
	return keys, dates
}

// HoldRange atomically claims every night in rng for bookingID.
func (r *RedisCalendarRepository) HoldRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string, expiresAt time.Time) (*domain.HoldToken, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.hold_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
		attribute.String("range", rng.String()),
	)

	keys, dates := rangeKeys(roomID, rng)
	now := r.now()
	args := []interface{}{bookingID, expiresAt.Unix(), now.Unix()}

	result := r.client.EvalWithFallback(ctx, scriptHoldRange, holdRangeScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute hold_range script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) == 0 {
		span.SetStatus(codes.Error, "empty result")
		return nil, fmt.Errorf("unexpected empty script result")
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		span.SetStatus(codes.Ok, "")
		return &domain.HoldToken{
			RoomID:    roomID,
			BookingID: bookingID,
			Range:     rng,
			ExpiresAt: expiresAt,
		}, nil
	}

	conflict := &domain.AvailabilityConflictError{RoomID: roomID}
	for _, v := range values[1:] {
		idx, ok := toInt64(v)
		if !ok || idx < 1 || int(idx) > len(dates) {
			continue
		}
		conflict.Dates = append(conflict.Dates, dates[idx-1])
	}
	span.SetAttributes(attribute.Int("conflict_nights", len(conflict.Dates)))
	span.SetStatus(codes.Error, "availability conflict")
	return nil, conflict
}

// ConfirmRange promotes a live hold to BOOKED.
func (r *RedisCalendarRepository) ConfirmRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.confirm_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
		attribute.String("range", rng.String()),
	)

	keys, _ := rangeKeys(roomID, rng)
	args := []interface{}{bookingID, r.now().Unix()}

	result := r.client.EvalWithFallback(ctx, scriptConfirmRange, confirmRangeScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return fmt.Errorf("failed to execute confirm_range script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) == 0 {
		span.SetStatus(codes.Error, "empty result")
		return fmt.Errorf("unexpected empty script result")
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	span.SetStatus(codes.Error, "hold expired")
	return domain.ErrHoldExpired
}

// ReleaseRange frees every night in rng owned by bookingID.
func (r *RedisCalendarRepository) ReleaseRange(ctx context.Context, roomID string, rng domain.DateRange, bookingID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.release_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("booking_id", bookingID),
		attribute.String("range", rng.String()),
	)

	keys, _ := rangeKeys(roomID, rng)
	args := []interface{}{bookingID, r.now().Unix()}

	result := r.client.EvalWithFallback(ctx, scriptReleaseRange, releaseRangeScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return 0, fmt.Errorf("failed to execute release_range script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 2 {
		span.SetStatus(codes.Error, "unexpected result length")
		return 0, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	freed, _ := toInt64(values[1])
	span.SetAttributes(attribute.Int64("freed", freed))
	span.SetStatus(codes.Ok, "")
	return int(freed), nil
}

// BlockRange marks every free night in rng BLOCKED.
func (r *RedisCalendarRepository) BlockRange(ctx context.Context, roomID string, rng domain.DateRange, reason domain.BlockReason) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.block_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
		attribute.String("reason", string(reason)),
	)

	keys, dates := rangeKeys(roomID, rng)
	args := []interface{}{string(reason), r.now().Unix()}

	result := r.client.EvalWithFallback(ctx, scriptBlockRange, blockRangeScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return fmt.Errorf("failed to execute block_range script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) == 0 {
		span.SetStatus(codes.Error, "empty result")
		return fmt.Errorf("unexpected empty script result")
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	conflict := &domain.AvailabilityConflictError{RoomID: roomID}
	for _, v := range values[1:] {
		idx, ok := toInt64(v)
		if !ok || idx < 1 || int(idx) > len(dates) {
			continue
		}
		conflict.Dates = append(conflict.Dates, dates[idx-1])
	}
	span.SetStatus(codes.Error, "availability conflict")
	return conflict
}

// UnblockRange returns BLOCKED nights in rng to FREE. Holds never claim a
// BLOCKED night, so a plain check-then-set per day cannot race with them.
func (r *RedisCalendarRepository) UnblockRange(ctx context.Context, roomID string, rng domain.DateRange) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.unblock_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	now := r.now().Unix()
	unblocked := 0
	for _, date := range rng.Dates() {
		key := dayKey(roomID, date)
		state, err := r.client.Client().HGet(ctx, key, "state").Result()
		if err != nil {
			if isRedisNil(err) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return unblocked, fmt.Errorf("failed to read day state: %w", err)
		}
		if state != string(domain.DayStateBlocked) {
			continue
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "state", string(domain.DayStateFree), "updated_at", now)
		pipe.HDel(ctx, key, "block_reason")
		if _, err := pipe.Exec(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return unblocked, fmt.Errorf("failed to unblock day: %w", err)
		}
		unblocked++
	}

	span.SetAttributes(attribute.Int("unblocked", unblocked))
	span.SetStatus(codes.Ok, "")
	return unblocked, nil
}

// GetRange returns one DayRecord per night, FREE-filled for missing days.
func (r *RedisCalendarRepository) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.DayRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.calendar.get_range")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("range", rng.String()),
	)

	dates := rng.Dates()
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(dates))
	for _, date := range dates {
		cmds = append(cmds, pipe.HGetAll(ctx, dayKey(roomID, date)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !isRedisNil(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read calendar range: %w", err)
	}

	records := make([]domain.DayRecord, 0, len(dates))
	for i, date := range dates {
		fields, err := cmds[i].Result()
		if err != nil && !isRedisNil(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to read day record: %w", err)
		}
		records = append(records, dayRecordFromFields(roomID, date, fields))
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

func dayRecordFromFields(roomID string, date time.Time, fields map[string]string) domain.DayRecord {
	record := domain.DayRecord{
		RoomID: roomID,
		Date:   date,
		State:  domain.DayStateFree,
	}
	if len(fields) == 0 {
		return record
	}

	if s, ok := fields["state"]; ok && s != "" {
		record.State = domain.DayState(s)
	}
	record.BookingID = fields["booking_id"]
	record.BlockReason = domain.BlockReason(fields["block_reason"])
	if v := fields["hold_expires_at"]; v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			record.HoldExpiresAt = time.Unix(unix, 0).UTC()
		}
	}
	if v := fields["updated_at"]; v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			record.UpdatedAt = time.Unix(unix, 0).UTC()
		}
	}
	return record
}

func isRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// toInt64 converts a Lua script result element to int64.
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Ensure RedisCalendarRepository implements CalendarRepository
var _ CalendarRepository = (*RedisCalendarRepository)(nil)
