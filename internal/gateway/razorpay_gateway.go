package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements PaymentGateway against the Razorpay REST API.
// Orders are cached per booking so a retried checkout reuses the original
// order instead of opening a second one.
type RazorpayGateway struct {
	config *RazorpayGatewayConfig
	client *http.Client
	orders sync.Map // bookingID -> *OrderRef
}

// RazorpayGatewayConfig holds configuration for the Razorpay gateway.
type RazorpayGatewayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// NewRazorpayGateway creates a new Razorpay gateway.
func NewRazorpayGateway(config *RazorpayGatewayConfig) (*RazorpayGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("razorpay config is required")
	}
	if config.KeyID == "" || config.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultRazorpayBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RazorpayGateway{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a Razorpay order for the booking, reusing a previously
// opened one on retry.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderRef, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}

	if cached, ok := g.orders.Load(req.BookingID); ok {
		return cached.(*OrderRef), nil
	}

	payload := map[string]interface{}{
		"amount":   ToPaise(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Reference,
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}

	var order razorpayOrderResponse
	if err := g.post(ctx, "/orders", payload, &order); err != nil {
		return nil, err
	}

	ref := &OrderRef{
		OrderID:  order.ID,
		Amount:   FromPaise(order.Amount),
		Currency: order.Currency,
	}
	g.orders.Store(req.BookingID, ref)
	return ref, nil
}

// VerifySignature checks the checkout callback signature. Razorpay signs
// "<order_id>|<payment_id>" with the key secret.
func (g *RazorpayGateway) VerifySignature(params *SignatureParams) error {
	if params == nil || params.OrderID == "" || params.PaymentID == "" || params.Signature == "" {
		return domain.ErrPaymentVerificationFailed
	}

	expected := hmacHex([]byte(params.OrderID+"|"+params.PaymentID), g.config.KeySecret)
	if !hmac.Equal([]byte(expected), []byte(params.Signature)) {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// VerifyWebhookSignature checks the signature of a raw webhook body against
// the webhook secret.
func (g *RazorpayGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if signature == "" {
		return domain.ErrPaymentVerificationFailed
	}

	expected := hmacHex(body, g.config.WebhookSecret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrPaymentVerificationFailed
	}
	return nil
}

// Refund refunds amount against a captured payment.
func (g *RazorpayGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundRef, error) {
	if req == nil || req.PaymentID == "" {
		return nil, fmt.Errorf("refund payment id is required")
	}

	payload := map[string]interface{}{
		"amount": ToPaise(req.Amount),
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}

	var refund razorpayRefundResponse
	path := fmt.Sprintf("/payments/%s/refund", req.PaymentID)
	if err := g.post(ctx, path, payload, &refund); err != nil {
		return nil, err
	}

	return &RefundRef{
		RefundID: refund.ID,
		Amount:   FromPaise(refund.Amount),
		Status:   refund.Status,
	}, nil
}

// Name returns the gateway name.
func (g *RazorpayGateway) Name() string {
	return "razorpay"
}

func (g *RazorpayGateway) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.config.KeyID, g.config.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrAdapterUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: gateway returned %d", domain.ErrAdapterUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var gwErr razorpayErrorResponse
		if err := json.Unmarshal(data, &gwErr); err == nil && gwErr.Error.Code != "" {
			return fmt.Errorf("gateway rejected request: %s: %s", gwErr.Error.Code, gwErr.Error.Description)
		}
		return fmt.Errorf("gateway rejected request with status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse gateway response: %w", err)
		}
	}
	return nil
}

func hmacHex(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Ensure RazorpayGateway implements PaymentGateway
var _ PaymentGateway = (*RazorpayGateway)(nil)
