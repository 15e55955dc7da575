package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/dto"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// BookingHandler handles booking lifecycle HTTP requests.
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// Create handles POST /bookings. It holds the nights, freezes the price
// snapshot and returns the payment order the guest completes next.
func (h *BookingHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("room_id", req.RoomID),
		attribute.String("check_in", req.CheckIn),
		attribute.String("check_out", req.CheckOut),
	)

	booking, err := h.bookingService.Create(ctx, &service.CreateBookingRequest{
		RoomID:          req.RoomID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guest:           req.ToGuestDetails(),
		SpecialRequests: req.SpecialRequests,
		Notes:           req.Notes,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, dto.FromBooking(booking))
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := h.bookingService.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

// GetByReference handles GET /bookings/reference/:reference.
func (h *BookingHandler) GetByReference(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get_by_reference")
	defer span.End()

	reference := c.Param("reference")
	span.SetAttributes(attribute.String("reference", reference))

	booking, err := h.bookingService.GetByReference(ctx, reference)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

// ConfirmPayment handles POST /bookings/:id/payment.
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.confirm_payment")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	booking, err := h.bookingService.ConfirmPayment(ctx, &service.PaymentCallback{
		BookingID: id,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

// Cancel handles POST /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	// An empty body is a plain cancellation
	var req dto.CancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := h.bookingService.Cancel(ctx, &service.CancelBookingRequest{
		BookingID:   id,
		Reason:      req.Reason,
		CancelledBy: req.CancelledBy,
		SkipRefund:  req.SkipRefund,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

// Refund handles POST /bookings/:id/refund.
func (h *BookingHandler) Refund(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.refund")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	var req dto.RefundBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	booking, err := h.bookingService.Refund(ctx, &service.RefundBookingRequest{
		BookingID:   id,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedBy: req.ProcessedBy,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

// CheckIn handles POST /bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.stayTransition(c, "handler.booking.check_in", h.bookingService.CheckIn)
}

// CheckOut handles POST /bookings/:id/check-out.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.stayTransition(c, "handler.booking.check_out", h.bookingService.CheckOut)
}

// Complete handles POST /bookings/:id/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.complete")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := h.bookingService.Complete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

func (h *BookingHandler) stayTransition(c *gin.Context, spanName string, transition func(ctx context.Context, bookingID, staff string) (*domain.Booking, error)) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), spanName)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", id))

	var req dto.StayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	booking, err := transition(ctx, id, req.Staff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromBooking(booking))
}

func (h *BookingHandler) handleError(c *gin.Context, err error) {
	var conflict *domain.AvailabilityConflictError
	switch {
	case errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_AVAILABLE",
		})
	case errors.Is(err, domain.ErrDateRangeInvalid):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_DATE_RANGE",
		})
	case errors.Is(err, domain.ErrPaymentVerificationFailed):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PAYMENT_VERIFICATION_FAILED",
		})
	case errors.Is(err, domain.ErrHoldExpired):
		c.JSON(http.StatusGone, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "HOLD_EXPIRED",
			Message: "The hold lapsed before payment completed. Any captured amount will be refunded.",
		})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_STATE",
		})
	case errors.Is(err, domain.ErrRefundFailed):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "REFUND_REJECTED",
		})
	case errors.Is(err, domain.ErrAdapterUnavailable):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "GATEWAY_UNAVAILABLE",
			Message: "The payment gateway is temporarily unavailable. Retry shortly.",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
