package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest asks the gateway to open a payment order for a booking.
type OrderRequest struct {
	BookingID string
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Notes     map[string]string
}

// OrderRef identifies an order opened at the gateway.
type OrderRef struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
}

// SignatureParams carries the fields of a synchronous payment callback.
type SignatureParams struct {
	OrderID   string
	PaymentID string
	Signature string
}

// RefundRequest asks the gateway to refund part or all of a captured
// payment.
type RefundRequest struct {
	PaymentID string
	Amount    decimal.Decimal
	Notes     map[string]string
}

// RefundRef identifies a refund processed by the gateway.
type RefundRef struct {
	RefundID string
	Amount   decimal.Decimal
	Status   string
}

// PaymentGateway abstracts the payment provider. Implementations must treat
// CreateOrder as idempotent per booking and surface transient provider
// failures as domain.ErrAdapterUnavailable so callers can retry.
type PaymentGateway interface {
	// CreateOrder opens a payment order for the booking. Calling it again
	// for the same booking returns the original order.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderRef, error)

	// VerifySignature checks the signature of a synchronous payment
	// callback. It returns domain.ErrPaymentVerificationFailed on mismatch.
	VerifySignature(params *SignatureParams) error

	// VerifyWebhookSignature checks the signature of a raw webhook body.
	VerifyWebhookSignature(body []byte, signature string) error

	// Refund refunds amount against a captured payment.
	Refund(ctx context.Context, req *RefundRequest) (*RefundRef, error)

	// Name returns the gateway name.
	Name() string
}

// ToPaise converts a rupee amount to the smallest currency unit the
// gateways bill in.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromPaise converts a smallest-unit amount back to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}
