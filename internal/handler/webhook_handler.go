package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/dto"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/logger"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// webhookEnvelope is the gateway's webhook payload shape. Payment and refund
// entities carry amounts in the smallest currency unit.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Amount  int64             `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string            `json:"id"`
				PaymentID string            `json:"payment_id"`
				Amount    int64             `json:"amount"`
				Notes     map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// WebhookHandler handles payment gateway webhook events.
type WebhookHandler struct {
	bookingService service.BookingService
	gateway        gateway.PaymentGateway
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(bookingService service.BookingService, gw gateway.PaymentGateway) *WebhookHandler {
	return &WebhookHandler{
		bookingService: bookingService,
		gateway:        gw,
	}
}

// HandlePaymentWebhook handles POST /webhooks/payment. The gateway retries
// delivery until it sees a 2xx, so duplicate events are the norm here; the
// service's ledger absorbs them.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.webhook.payment")
	defer span.End()

	log := logger.Get()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreadable body")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "failed to read request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if signature == "" {
		span.SetStatus(codes.Error, "missing signature")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "missing webhook signature header",
			Code:  "MISSING_SIGNATURE",
		})
		return
	}
	if err := h.gateway.VerifyWebhookSignature(body, signature); err != nil {
		log.Warn("webhook signature verification failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid signature")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid webhook signature",
			Code:  "INVALID_SIGNATURE",
		})
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed payload")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "malformed webhook payload",
			Code:  "INVALID_PAYLOAD",
		})
		return
	}

	eventID := c.GetHeader("X-Razorpay-Event-Id")
	span.SetAttributes(
		attribute.String("event", envelope.Event),
		attribute.String("event_id", eventID),
	)

	event, ok := h.toGatewayEvent(&envelope, eventID)
	if !ok {
		log.Debug("ignoring unhandled webhook event", zap.String("event", envelope.Event))
		span.SetStatus(codes.Ok, "")
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "event type not handled"})
		return
	}

	booking, err := h.bookingService.ApplyGatewayEvent(ctx, event)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("booking_id", booking.ID))
		span.SetStatus(codes.Ok, "")
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, domain.ErrBookingNotFound):
		// Acknowledge so the gateway stops retrying an event we can never
		// resolve.
		log.Warn("webhook event for unknown booking",
			zap.String("event", envelope.Event),
			zap.String("order_id", event.OrderID))
		span.SetStatus(codes.Ok, "unknown booking")
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "booking not found"})
	case errors.Is(err, domain.ErrHoldExpired):
		// The capture was recorded against a lapsed hold. Acknowledged; the
		// refund is an operator action.
		log.Warn("webhook capture landed after hold expiry",
			zap.String("order_id", event.OrderID),
			zap.String("payment_id", event.PaymentID))
		span.SetStatus(codes.Ok, "hold expired")
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "hold expired before capture"})
	default:
		// Non-2xx makes the gateway redeliver; the ledger keeps the retry
		// idempotent.
		log.Error("failed to apply webhook event",
			zap.String("event", envelope.Event),
			zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "failed to process event",
			Code:  "PROCESSING_FAILED",
		})
	}
}

func (h *WebhookHandler) toGatewayEvent(envelope *webhookEnvelope, eventID string) (*service.GatewayEvent, bool) {
	switch envelope.Event {
	case "payment.captured", "payment.failed":
		payment := envelope.Payload.Payment.Entity
		kind := domain.PaymentEventCaptured
		if envelope.Event == "payment.failed" {
			kind = domain.PaymentEventFailed
		}
		return &service.GatewayEvent{
			EventID:   eventID,
			Kind:      kind,
			BookingID: payment.Notes["booking_id"],
			OrderID:   payment.OrderID,
			PaymentID: payment.ID,
			Amount:    gateway.FromPaise(payment.Amount),
		}, true
	case "refund.processed":
		refund := envelope.Payload.Refund.Entity
		return &service.GatewayEvent{
			EventID:   eventID,
			Kind:      domain.PaymentEventRefundProcessed,
			BookingID: refund.Notes["booking_id"],
			PaymentID: refund.PaymentID,
			RefundID:  refund.ID,
			Amount:    gateway.FromPaise(refund.Amount),
		}, true
	default:
		return nil, false
	}
}
