package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusRefunded   BookingStatus = "REFUNDED"
)

func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is absorbing.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded:
		return true
	}
	return false
}

// transitions is the legal edge set of the booking state machine.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn:  {BookingStatusCheckedOut},
	BookingStatusCheckedOut: {BookingStatusCompleted},
	BookingStatusCancelled:  {BookingStatusRefunded},
}

// CanTransitionTo reports whether moving from s to target is a legal edge.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentStatus tracks money captured against a booking, separately from the
// booking lifecycle.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

// GuestDetails is the primary guest's contact and identification info.
type GuestDetails struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	IDProof        IDProof `json:"id_proof"`
	NumberOfGuests int     `json:"number_of_guests"`
	Address        string  `json:"address"`
}

// IDProof is a government identity document reference.
type IDProof struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// DailyRate is one night of the immutable price snapshot captured at hold
// time.
type DailyRate struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// RefundDetail records one processed refund against a booking.
type RefundDetail struct {
	RefundID    string          `json:"refund_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ProcessedBy string          `json:"processed_by"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// Booking is a reservation of one room over a half-open night range. The
// price breakdown is frozen at creation time and never recomputed; terminal
// bookings are retained for audit.
type Booking struct {
	ID           string
	Reference    string
	RoomID       string
	Range        DateRange
	GuestDetails GuestDetails

	Status        BookingStatus
	PaymentStatus PaymentStatus

	TotalAmount    decimal.Decimal
	Currency       string
	PriceBreakdown []DailyRate

	OrderID   string
	PaymentID string
	Refunds   []RefundDetail

	HoldExpiresAt time.Time

	ActualCheckIn  *time.Time
	ActualCheckOut *time.Time
	CheckedInBy    string
	CheckedOutBy   string

	CancellationReason string
	SpecialRequests    string
	Notes              string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBookingReference generates a human-readable booking reference.
func NewBookingReference() string {
	return "HSB-" + strings.ToUpper(uuid.New().String()[:8])
}

// RefundedAmount is the sum of all processed refunds.
func (b *Booking) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range b.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// RemainingRefundable is the amount still eligible for refund.
func (b *Booking) RemainingRefundable() decimal.Decimal {
	return b.TotalAmount.Sub(b.RefundedAmount())
}

// HoldLapsed reports whether a PENDING booking's hold TTL has passed.
func (b *Booking) HoldLapsed(now time.Time) bool {
	return b.Status == BookingStatusPending && !b.HoldExpiresAt.IsZero() && !now.Before(b.HoldExpiresAt)
}

// IsPaid reports whether a payment has been captured for the booking.
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid || b.PaymentStatus == PaymentStatusPartialRefund
}
