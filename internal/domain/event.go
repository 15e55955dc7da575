package domain

import "time"

// PaymentEventKind is the kind of gateway event carried by a webhook payload.
type PaymentEventKind string

const (
	PaymentEventCaptured        PaymentEventKind = "payment.captured"
	PaymentEventFailed          PaymentEventKind = "payment.failed"
	PaymentEventRefundProcessed PaymentEventKind = "refund.processed"
)

// PaymentEvent is one entry in the idempotency ledger. Ledger entries are
// keyed by the gateway event id when the gateway supplies one, and always by
// (booking id, target status) so the synchronous verify path and the webhook
// path suppress each other's duplicates.
type PaymentEvent struct {
	EventID      string
	BookingID    string
	Kind         PaymentEventKind
	TargetStatus BookingStatus
	OrderID      string
	PaymentID    string
	RefundID     string
	ProcessedAt  time.Time
}

// NotificationKind labels fire-and-forget messages to the notification sink.
type NotificationKind string

const (
	NotificationBookingCreated    NotificationKind = "booking.created"
	NotificationBookingConfirmed  NotificationKind = "booking.confirmed"
	NotificationBookingCancelled  NotificationKind = "booking.cancelled"
	NotificationBookingExpired    NotificationKind = "booking.expired"
	NotificationBookingCheckedIn  NotificationKind = "booking.checked_in"
	NotificationBookingCheckedOut NotificationKind = "booking.checked_out"
	NotificationRefundRecorded    NotificationKind = "booking.refund_recorded"
)
