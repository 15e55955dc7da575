package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrDateRangeInvalid = errors.New("invalid date range")

	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrHoldExpired            = errors.New("hold has expired")

	ErrPaymentVerificationFailed = errors.New("payment signature verification failed")
	ErrRefundFailed              = errors.New("refund exceeds remaining refundable balance")

	// ErrAdapterUnavailable marks a transient gateway failure. It is the only
	// error kind eligible for caller-driven retry.
	ErrAdapterUnavailable = errors.New("payment gateway unavailable")
)

// AvailabilityConflictError is returned when a hold cannot claim every date
// in the requested range. It carries the dates that were not free.
type AvailabilityConflictError struct {
	RoomID string
	Dates  []time.Time
}

func (e *AvailabilityConflictError) Error() string {
	ds := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		ds[i] = d.Format(DateLayout)
	}
	return fmt.Sprintf("room %s not available on %s", e.RoomID, strings.Join(ds, ", "))
}

// IsAvailabilityConflict reports whether err is an availability conflict and
// returns it when so.
func IsAvailabilityConflict(err error) (*AvailabilityConflictError, bool) {
	var conflict *AvailabilityConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// StateTransitionError wraps ErrInvalidStateTransition with the attempted
// edge.
type StateTransitionError struct {
	BookingID string
	From      BookingStatus
	To        BookingStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("booking %s: illegal transition %s -> %s", e.BookingID, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// NewStateTransitionError builds a StateTransitionError for the given edge.
func NewStateTransitionError(bookingID string, from, to BookingStatus) error {
	return &StateTransitionError{BookingID: bookingID, From: from, To: to}
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAdapterUnavailable)
}

// IsNotFoundError reports whether the error is a missing-entity error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrBookingNotFound)
}
