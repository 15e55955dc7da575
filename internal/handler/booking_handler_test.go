package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/dto"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/gateway"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/repository"
	"github.com/AbinayReddy2501/prakruthihomestay/internal/service"
)

// stubRoomRepo serves one fixed room.
type stubRoomRepo struct {
	room domain.Room
}

func (s *stubRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id != s.room.ID {
		return nil, domain.ErrRoomNotFound
	}
	room := s.room
	return &room, nil
}

// stubPriceRepo has no explicit prices; every night falls back to the base
// price.
type stubPriceRepo struct{}

func (s *stubPriceRepo) GetRange(ctx context.Context, roomID string, rng domain.DateRange) ([]domain.PriceRecord, error) {
	return nil, nil
}

func (s *stubPriceRepo) SetDay(ctx context.Context, record *domain.PriceRecord) error { return nil }

func (s *stubPriceRepo) SetRange(ctx context.Context, roomID string, rng domain.DateRange, records []domain.PriceRecord) error {
	return nil
}

type handlerFixture struct {
	engine   *gin.Engine
	gateway  *gateway.MockGateway
	bookings *repository.MemoryBookingRepository
	events   *repository.MemoryPaymentEventRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		gateway:  gateway.NewMockGateway("key_secret", "webhook_secret"),
		bookings: repository.NewMemoryBookingRepository(),
		events:   repository.NewMemoryPaymentEventRepository(),
	}

	roomRepo := &stubRoomRepo{room: domain.Room{
		ID:        "room-1",
		Name:      "Valley View",
		Capacity:  3,
		BasePrice: decimal.NewFromInt(5000),
		Active:    true,
	}}
	calendarRepo := repository.NewMemoryCalendarRepository()

	availability := service.NewAvailabilityService(calendarRepo, roomRepo, nil)
	pricing := service.NewPricingService(&stubPriceRepo{}, roomRepo)

	bookingService, err := service.NewBookingService(&service.BookingServiceConfig{
		BookingRepo:  f.bookings,
		EventRepo:    f.events,
		RoomRepo:     roomRepo,
		Availability: availability,
		Pricing:      pricing,
		Gateway:      f.gateway,
		Publisher:    service.NewNoOpEventPublisher(),
		Currency:     "INR",
	})
	require.NoError(t, err)

	router := NewRouter(
		NewBookingHandler(bookingService),
		NewCalendarHandler(availability, pricing),
		NewWebhookHandler(bookingService, f.gateway),
	)
	f.engine = gin.New()
	router.Setup(f.engine)
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) createBooking(t *testing.T, checkIn, checkOut string) *dto.BookingResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"room_id":   "room-1",
		"check_in":  checkIn,
		"check_out": checkOut,
		"guest": gin.H{
			"name":             "Asha Rao",
			"email":            "asha@example.com",
			"number_of_guests": 2,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func TestHandlerCreateBooking(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.createBooking(t, "2099-10-01", "2099-10-03")

	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "UNPAID", resp.PaymentStatus)
	assert.Equal(t, 2, resp.Nights)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(10000)))
	assert.NotEmpty(t, resp.OrderID)
	assert.NotNil(t, resp.HoldExpiresAt)
	assert.Len(t, resp.PriceBreakdown, 2)
}

func TestHandlerCreateBookingInvalidBody(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/bookings", gin.H{"room_id": "room-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "INVALID_REQUEST", errResp.Code)
}

func TestHandlerCreateBookingConflict(t *testing.T) {
	f := newHandlerFixture(t)

	f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"room_id":   "room-1",
		"check_in":  "2099-10-02",
		"check_out": "2099-10-04",
		"guest": gin.H{
			"name":             "Ravi",
			"email":            "ravi@example.com",
			"number_of_guests": 1,
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "NOT_AVAILABLE", errResp.Code)
}

func TestHandlerGetBooking(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/bookings/reference/"+created.Reference, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/bookings/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerConfirmPayment(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/payment", gin.H{
		"order_id":   created.OrderID,
		"payment_id": "pay_001",
		"signature":  f.gateway.Sign(created.OrderID, "pay_001"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "PAID", resp.PaymentStatus)
}

func TestHandlerConfirmPaymentForgedSignature(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/payment", gin.H{
		"order_id":   created.OrderID,
		"payment_id": "pay_001",
		"signature":  "forged",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "PAYMENT_VERIFICATION_FAILED", errResp.Code)
}

func TestHandlerCancelBooking(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/cancel", gin.H{
		"reason": "change of plans",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "change of plans", resp.CancellationReason)
}

func TestHandlerRefundOverCeiling(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")
	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/payment", gin.H{
		"order_id":   created.OrderID,
		"payment_id": "pay_001",
		"signature":  f.gateway.Sign(created.OrderID, "pay_001"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/refund", gin.H{
		"amount":       "25000",
		"reason":       "too much",
		"processed_by": "admin",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "REFUND_REJECTED", errResp.Code)
}

func TestHandlerCheckInBeforePayment(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.createBooking(t, "2099-10-01", "2099-10-03")

	rec := f.do(t, http.MethodPost, "/api/v1/bookings/"+created.ID+"/check-in", gin.H{
		"staff": "reception",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerCalendarAndBlock(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rooms/room-1/block", gin.H{
		"check_in":  "2099-11-01",
		"check_out": "2099-11-04",
		"reason":    "MAINTENANCE",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/room-1/calendar?check_in=2099-11-01&check_out=2099-11-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var calendar dto.CalendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calendar))
	require.Len(t, calendar.Days, 3)
	for _, day := range calendar.Days {
		assert.Equal(t, "BLOCKED", day.State)
		assert.Equal(t, "MAINTENANCE", day.BlockReason)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/rooms/room-1/unblock", gin.H{
		"check_in":  "2099-11-01",
		"check_out": "2099-11-04",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unblocked":3`)
}

func TestHandlerGetPrices(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/rooms/room-1/prices?check_in=2099-10-01&check_out=2099-10-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prices dto.PricesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	require.Len(t, prices.Days, 2)
	assert.True(t, prices.Total.Equal(decimal.NewFromInt(10000)))
	for _, day := range prices.Days {
		assert.Equal(t, "DEFAULT", day.Reason)
	}
}

func TestHandlerGetPricesMissingRange(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/rooms/room-1/prices", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerBlockUnknownReason(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rooms/room-1/block", gin.H{
		"check_in":  "2099-11-01",
		"check_out": "2099-11-04",
		"reason":    "VACATION",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
