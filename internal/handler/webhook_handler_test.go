package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

func (f *handlerFixture) postWebhook(t *testing.T, payload gin.H, eventID string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		req.Header.Set("X-Razorpay-Signature", f.gateway.SignWebhook(body))
	}
	if eventID != "" {
		req.Header.Set("X-Razorpay-Event-Id", eventID)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func capturedPayload(orderID, paymentID, bookingID string, amountPaise int64) gin.H {
	return gin.H{
		"event": "payment.captured",
		"payload": gin.H{
			"payment": gin.H{
				"entity": gin.H{
					"id":       paymentID,
					"order_id": orderID,
					"amount":   amountPaise,
					"notes":    gin.H{"booking_id": bookingID},
				},
			},
		},
	}
}

func TestWebhookCaptureConfirmsBooking(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.postWebhook(t, capturedPayload(created.OrderID, "pay_001", created.ID, 1000000), "evt_001", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.bookings.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.Status)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pay_001", stored.PaymentID)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")
	payload := capturedPayload(created.OrderID, "pay_001", created.ID, 1000000)

	rec := f.postWebhook(t, payload, "evt_001", true)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.postWebhook(t, payload, "evt_001", true)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, f.events.Count())
}

func TestWebhookBadSignature(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")
	payload := capturedPayload(created.OrderID, "pay_001", created.ID, 1000000)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "forged")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := f.bookings.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
}

func TestWebhookMissingSignature(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.postWebhook(t, capturedPayload("order_x", "pay_x", "", 100), "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnhandledEvent(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.postWebhook(t, gin.H{"event": "order.paid"}, "evt_002", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not handled")
}

func TestWebhookUnknownBookingAcknowledged(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.postWebhook(t, capturedPayload("order_unknown", "pay_x", "", 100), "evt_003", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking not found")
}

func TestWebhookPaymentFailedCancelsBooking(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.postWebhook(t, gin.H{
		"event": "payment.failed",
		"payload": gin.H{
			"payment": gin.H{
				"entity": gin.H{
					"id":       "pay_001",
					"order_id": created.OrderID,
					"amount":   1000000,
				},
			},
		},
	}, "evt_004", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.bookings.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
}

func TestWebhookRefundProcessed(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")
	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/payment", gin.H{
		"order_id":   created.OrderID,
		"payment_id": "pay_001",
		"signature":  f.gateway.Sign(created.OrderID, "pay_001"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.postWebhook(t, gin.H{
		"event": "refund.processed",
		"payload": gin.H{
			"refund": gin.H{
				"entity": gin.H{
					"id":         "rfnd_001",
					"payment_id": "pay_001",
					"amount":     400000,
					"notes":      gin.H{"booking_id": created.ID},
				},
			},
		},
	}, "evt_005", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.bookings.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartialRefund, stored.PaymentStatus)
	require.Len(t, stored.Refunds, 1)
	assert.Equal(t, "rfnd_001", stored.Refunds[0].RefundID)
	assert.True(t, stored.Refunds[0].Amount.IntPart() == 4000)
}
