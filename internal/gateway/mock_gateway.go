package gateway

import (
	"context"
	"crypto/hmac"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// MockGateway implements PaymentGateway for testing and development. It
// signs callbacks with the same HMAC scheme as the real gateway so tests
// can produce valid and invalid signatures.
type MockGateway struct {
	secret        string
	webhookSecret string

	orders  sync.Map // bookingID -> *OrderRef
	refunds sync.Map // refundID -> *RefundRef

	mu          sync.Mutex
	unavailable bool
	refundCount int
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway(secret, webhookSecret string) *MockGateway {
	return &MockGateway{secret: secret, webhookSecret: webhookSecret}
}

// SetUnavailable makes every gateway call fail with a transient error.
func (g *MockGateway) SetUnavailable(unavailable bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unavailable = unavailable
}

func (g *MockGateway) isUnavailable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unavailable
}

// CreateOrder opens a mock order, reusing the order of a retried booking.
func (g *MockGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderRef, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}
	if g.isUnavailable() {
		return nil, fmt.Errorf("%w: mock gateway down", domain.ErrAdapterUnavailable)
	}

	if cached, ok := g.orders.Load(req.BookingID); ok {
		return cached.(*OrderRef), nil
	}

	ref := &OrderRef{
		OrderID:  "order_mock_" + uuid.New().String()[:12],
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	g.orders.Store(req.BookingID, ref)
	return ref, nil
}

// Sign produces the callback signature the mock expects, for tests.
func (g *MockGateway) Sign(orderID, paymentID string) string {
	return hmacHex([]byte(orderID+"|"+paymentID), g.secret)
}

// SignWebhook produces a webhook body signature, for tests.
func (g *MockGateway) SignWebhook(body []byte) string {
	return hmacHex(body, g.webhookSecret)
}

// VerifySignature checks a callback signature.
func (g *MockGateway) VerifySignature(params *SignatureParams) error {
	if params == nil || params.OrderID == "" || params.PaymentID == "" || params.Signature == "" {
		return domain.ErrPaymentVerificationFailed
	}
	expected := g.Sign(params.OrderID, params.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(params.Signature)) {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// VerifyWebhookSignature checks a webhook body signature.
func (g *MockGateway) VerifyWebhookSignature(body []byte, signature string) error {
	expected := g.SignWebhook(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// Refund records a mock refund.
func (g *MockGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundRef, error) {
	if req == nil || req.PaymentID == "" {
		return nil, fmt.Errorf("refund payment id is required")
	}
	if g.isUnavailable() {
		return nil, fmt.Errorf("%w: mock gateway down", domain.ErrAdapterUnavailable)
	}

	ref := &RefundRef{
		RefundID: "rfnd_mock_" + uuid.New().String()[:12],
		Amount:   req.Amount,
		Status:   "processed",
	}
	g.refunds.Store(ref.RefundID, ref)

	g.mu.Lock()
	g.refundCount++
	g.mu.Unlock()
	return ref, nil
}

// RefundCount returns how many refunds were processed (for testing).
func (g *MockGateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refundCount
}

// Name returns the gateway name.
func (g *MockGateway) Name() string {
	return "mock"
}

// Ensure MockGateway implements PaymentGateway
var _ PaymentGateway = (*MockGateway)(nil)
