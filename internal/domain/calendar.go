package domain

import (
	"time"
)

// DayState is the occupancy state of a single (room, date) calendar day.
type DayState string

const (
	DayStateFree    DayState = "FREE"
	DayStateHeld    DayState = "HELD"
	DayStateBooked  DayState = "BOOKED"
	DayStateBlocked DayState = "BLOCKED"
)

// BlockReason explains an administrative BLOCKED day.
type BlockReason string

const (
	BlockReasonMaintenance     BlockReason = "MAINTENANCE"
	BlockReasonAdminRestricted BlockReason = "ADMIN_RESTRICTED"
)

// DateLayout is the canonical wire/storage format for calendar dates.
const DateLayout = "2006-01-02"

// DayRecord is the occupancy record for one (room, date) key. Days without a
// record are FREE. BookingID is set only while HELD or BOOKED; HoldExpiresAt
// is set only while HELD.
type DayRecord struct {
	RoomID        string
	Date          time.Time
	State         DayState
	BookingID     string
	BlockReason   BlockReason
	HoldExpiresAt time.Time
	UpdatedAt     time.Time
}

// IsFree reports whether the day can be claimed by a new hold at the given
// instant. An expired hold counts as free.
func (d *DayRecord) IsFree(now time.Time) bool {
	switch d.State {
	case DayStateFree:
		return true
	case DayStateHeld:
		return !d.HoldExpiresAt.IsZero() && !now.Before(d.HoldExpiresAt)
	default:
		return false
	}
}

// HeldBy reports whether the day is currently held by the given booking and
// the hold has not lapsed.
func (d *DayRecord) HeldBy(bookingID string, now time.Time) bool {
	return d.State == DayStateHeld && d.BookingID == bookingID && now.Before(d.HoldExpiresAt)
}

// DateRange is a half-open interval of nights [CheckIn, CheckOut).
// The check-out date itself is not a booked night.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange builds a range from canonical date strings.
func NewDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := time.ParseInLocation(DateLayout, checkIn, time.UTC)
	if err != nil {
		return DateRange{}, ErrDateRangeInvalid
	}
	out, err := time.ParseInLocation(DateLayout, checkOut, time.UTC)
	if err != nil {
		return DateRange{}, ErrDateRangeInvalid
	}
	return DateRange{CheckIn: in, CheckOut: out}, nil
}

// Validate checks ordering and, when today is non-zero, rejects past check-ins.
func (r DateRange) Validate(today time.Time) error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() || !r.CheckIn.Before(r.CheckOut) {
		return ErrDateRangeInvalid
	}
	if !today.IsZero() && r.CheckIn.Before(Day(today)) {
		return ErrDateRangeInvalid
	}
	return nil
}

// Nights returns the number of nights in the range.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Dates returns every night in the range in ascending order, check-out
// excluded.
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Nights())
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Overlaps reports whether two half-open ranges share at least one night.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

func (r DateRange) String() string {
	return r.CheckIn.Format(DateLayout) + ".." + r.CheckOut.Format(DateLayout)
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HoldToken proves a successful hold over a date range. It is returned by the
// calendar and consumed by the booking lifecycle when confirming or releasing.
type HoldToken struct {
	RoomID    string
	BookingID string
	Range     DateRange
	ExpiresAt time.Time
}
