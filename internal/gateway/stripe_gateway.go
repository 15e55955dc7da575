package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// StripeGateway implements PaymentGateway using Stripe. Orders map to
// PaymentIntents; the booking id doubles as the idempotency key so retried
// checkouts reuse the original intent.
type StripeGateway struct {
	config *StripeGatewayConfig
	orders sync.Map // bookingID -> *OrderRef
}

// StripeGatewayConfig holds configuration for the Stripe gateway.
type StripeGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
}

// NewStripeGateway creates a new Stripe gateway.
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// CreateOrder creates a PaymentIntent for the booking.
func (g *StripeGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderRef, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}

	if cached, ok := g.orders.Load(req.BookingID); ok {
		return cached.(*OrderRef), nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToPaise(req.Amount)),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"booking_id": req.BookingID,
			"reference":  req.Reference,
		},
	}
	params.IdempotencyKey = stripe.String("order-" + req.BookingID)
	for k, v := range req.Notes {
		params.Metadata[k] = v
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	ref := &OrderRef{
		OrderID:  pi.ID,
		Amount:   FromPaise(pi.Amount),
		Currency: string(pi.Currency),
	}
	g.orders.Store(req.BookingID, ref)
	return ref, nil
}

// VerifySignature checks a synchronous callback by loading the intent and
// requiring a captured payment. Stripe has no order|payment HMAC scheme, so
// the intent status is the source of truth.
func (g *StripeGateway) VerifySignature(params *SignatureParams) error {
	if params == nil || params.OrderID == "" {
		return domain.ErrPaymentVerificationFailed
	}

	pi, err := paymentintent.Get(params.OrderID, nil)
	if err != nil {
		return wrapStripeError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// VerifyWebhookSignature checks a Stripe-Signature header against the raw
// webhook body.
func (g *StripeGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if _, err := webhook.ConstructEvent(body, signature, g.config.WebhookSecret); err != nil {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// Refund refunds amount against a captured PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundRef, error) {
	if req == nil || req.PaymentID == "" {
		return nil, fmt.Errorf("refund payment id is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentID),
		Amount:        stripe.Int64(ToPaise(req.Amount)),
	}

	rf, err := refund.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &RefundRef{
		RefundID: rf.ID,
		Amount:   FromPaise(rf.Amount),
		Status:   string(rf.Status),
	}, nil
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string {
	return "stripe"
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		// Since stripe-go v72, rate-limit errors carry Code rate_limit
		// instead of a dedicated ErrorType.
		if stripeErr.Code == stripe.ErrorCodeRateLimit {
			return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
		}
		switch stripeErr.Type {
		case stripe.ErrorTypeAPI:
			return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
		}
		return err
	}
	// Transport-level failure
	return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
}

// Ensure StripeGateway implements PaymentGateway
var _ PaymentGateway = (*StripeGateway)(nil)
