package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/dto"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/telemetry"
)

// CalendarHandler handles occupancy calendar and pricing HTTP requests.
type CalendarHandler struct {
	availability service.AvailabilityService
	pricing      service.PricingService
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(availability service.AvailabilityService, pricing service.PricingService) *CalendarHandler {
	return &CalendarHandler{
		availability: availability,
		pricing:      pricing,
	}
}

// GetCalendar handles GET /rooms/:id/calendar?check_in=...&check_out=...
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.get")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	rng, ok := h.queryRange(c)
	if !ok {
		span.SetStatus(codes.Error, "invalid range")
		return
	}

	records, err := h.availability.QueryRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromDayRecords(roomID, rng, records))
}

// Block handles POST /rooms/:id/block.
func (h *CalendarHandler) Block(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.block")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	var req dto.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		h.badRequest(c, err)
		return
	}

	rng, err := domain.NewDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, "invalid range")
		h.handleError(c, err)
		return
	}

	reason := domain.BlockReason(req.Reason)
	switch reason {
	case domain.BlockReasonMaintenance, domain.BlockReasonAdminRestricted:
	default:
		span.SetStatus(codes.Error, "unknown block reason")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "unknown block reason",
			Code:  "INVALID_BLOCK_REASON",
		})
		return
	}

	if err := h.availability.Block(ctx, roomID, rng, reason); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"blocked": rng.Nights()})
}

// Unblock handles POST /rooms/:id/unblock.
func (h *CalendarHandler) Unblock(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.unblock")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	var req dto.UnblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		h.badRequest(c, err)
		return
	}

	rng, err := domain.NewDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, "invalid range")
		h.handleError(c, err)
		return
	}

	unblocked, err := h.availability.Unblock(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("unblocked", unblocked))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"unblocked": unblocked})
}

// GetPrices handles GET /rooms/:id/prices?check_in=...&check_out=...
func (h *CalendarHandler) GetPrices(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.get_prices")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	rng, ok := h.queryRange(c)
	if !ok {
		span.SetStatus(codes.Error, "invalid range")
		return
	}

	records, err := h.pricing.GetRange(ctx, roomID, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromPriceRecords(roomID, rng, records))
}

// SetPrices handles PUT /rooms/:id/prices.
func (h *CalendarHandler) SetPrices(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.set_prices")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	var req dto.SetPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		h.badRequest(c, err)
		return
	}

	rng, err := domain.NewDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		span.SetStatus(codes.Error, "invalid range")
		h.handleError(c, err)
		return
	}

	records := make([]domain.PriceRecord, 0, len(req.Days))
	for _, day := range req.Days {
		parsed, parseErr := parseDate(day.Date)
		if parseErr != nil {
			span.SetStatus(codes.Error, "invalid date")
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: "invalid date " + day.Date,
				Code:  "INVALID_DATE",
			})
			return
		}
		records = append(records, domain.PriceRecord{
			RoomID:    roomID,
			Date:      parsed,
			Price:     day.Price,
			Reason:    domain.PriceReason(day.Reason),
			UpdatedBy: day.UpdatedBy,
		})
	}

	if err := h.pricing.SetRange(ctx, roomID, rng, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("days", len(records)))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"updated": len(records)})
}

// SetDayPrice handles PUT /rooms/:id/prices/day.
func (h *CalendarHandler) SetDayPrice(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.calendar.set_day_price")
	defer span.End()

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID))

	var req dto.DayPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		h.badRequest(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		span.SetStatus(codes.Error, "invalid date")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "invalid date " + req.Date,
			Code:  "INVALID_DATE",
		})
		return
	}

	record := domain.PriceRecord{
		RoomID:    roomID,
		Date:      date,
		Price:     req.Price,
		Reason:    domain.PriceReason(req.Reason),
		UpdatedBy: req.UpdatedBy,
	}
	if err := h.pricing.SetDay(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"updated": 1})
}

func (h *CalendarHandler) queryRange(c *gin.Context) (domain.DateRange, bool) {
	rng, err := domain.NewDateRange(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "check_in and check_out query parameters are required as YYYY-MM-DD",
			Code:  "INVALID_DATE_RANGE",
		})
		return domain.DateRange{}, false
	}
	if err := rng.Validate(time.Time{}); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_DATE_RANGE",
		})
		return domain.DateRange{}, false
	}
	return rng, true
}

func (h *CalendarHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid request",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

func (h *CalendarHandler) handleError(c *gin.Context, err error) {
	var conflict *domain.AvailabilityConflictError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
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
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(domain.DateLayout, value, time.UTC)
}
