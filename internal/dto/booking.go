package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// GuestDetailsRequest carries the primary guest's details.
type GuestDetailsRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone,omitempty"`
	IDProofType    string `json:"id_proof_type,omitempty"`
	IDProofNumber  string `json:"id_proof_number,omitempty"`
	NumberOfGuests int    `json:"number_of_guests" binding:"required,min=1"`
	Address        string `json:"address,omitempty"`
}

// CreateBookingRequest represents a request to open a booking.
type CreateBookingRequest struct {
	RoomID          string              `json:"room_id" binding:"required"`
	CheckIn         string              `json:"check_in" binding:"required"`
	CheckOut        string              `json:"check_out" binding:"required"`
	Guest           GuestDetailsRequest `json:"guest" binding:"required"`
	SpecialRequests string              `json:"special_requests,omitempty"`
	Notes           string              `json:"notes,omitempty"`
}

// ToGuestDetails converts the request guest block to the domain type.
func (r *CreateBookingRequest) ToGuestDetails() domain.GuestDetails {
	return domain.GuestDetails{
		Name:  r.Guest.Name,
		Email: r.Guest.Email,
		Phone: r.Guest.Phone,
		IDProof: domain.IDProof{
			Type:   r.Guest.IDProofType,
			Number: r.Guest.IDProofNumber,
		},
		NumberOfGuests: r.Guest.NumberOfGuests,
		Address:        r.Guest.Address,
	}
}

// PaymentCallbackRequest represents the synchronous payment callback the
// guest's browser posts after checkout.
type PaymentCallbackRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CancelBookingRequest represents a request to cancel a booking. Paid
// bookings are refunded automatically unless skip_refund is set.
type CancelBookingRequest struct {
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
	SkipRefund  bool   `json:"skip_refund,omitempty"`
}

// RefundBookingRequest represents an operator-initiated refund.
type RefundBookingRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Reason      string          `json:"reason,omitempty"`
	ProcessedBy string          `json:"processed_by,omitempty"`
}

// StayRequest carries the staff member recording a check-in or check-out.
type StayRequest struct {
	Staff string `json:"staff" binding:"required"`
}

// DailyRateResponse is one night of a booking's frozen price snapshot.
type DailyRateResponse struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// RefundResponse is one processed refund on a booking.
type RefundResponse struct {
	RefundID    string          `json:"refund_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
	ProcessedBy string          `json:"processed_by,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// BookingResponse represents a booking in API responses.
type BookingResponse struct {
	ID                 string              `json:"id"`
	Reference          string              `json:"reference"`
	RoomID             string              `json:"room_id"`
	CheckIn            string              `json:"check_in"`
	CheckOut           string              `json:"check_out"`
	Nights             int                 `json:"nights"`
	Status             string              `json:"status"`
	PaymentStatus      string              `json:"payment_status"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	Currency           string              `json:"currency"`
	PriceBreakdown     []DailyRateResponse `json:"price_breakdown,omitempty"`
	OrderID            string              `json:"order_id,omitempty"`
	PaymentID          string              `json:"payment_id,omitempty"`
	Refunds            []RefundResponse    `json:"refunds,omitempty"`
	HoldExpiresAt      *time.Time          `json:"hold_expires_at,omitempty"`
	GuestName          string              `json:"guest_name"`
	GuestEmail         string              `json:"guest_email"`
	ActualCheckIn      *time.Time          `json:"actual_check_in,omitempty"`
	ActualCheckOut     *time.Time          `json:"actual_check_out,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// FromBooking converts a domain booking to its API representation.
func FromBooking(b *domain.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:                 b.ID,
		Reference:          b.Reference,
		RoomID:             b.RoomID,
		CheckIn:            b.Range.CheckIn.Format(domain.DateLayout),
		CheckOut:           b.Range.CheckOut.Format(domain.DateLayout),
		Nights:             b.Range.Nights(),
		Status:             b.Status.String(),
		PaymentStatus:      string(b.PaymentStatus),
		TotalAmount:        b.TotalAmount,
		Currency:           b.Currency,
		OrderID:            b.OrderID,
		PaymentID:          b.PaymentID,
		GuestName:          b.GuestDetails.Name,
		GuestEmail:         b.GuestDetails.Email,
		ActualCheckIn:      b.ActualCheckIn,
		ActualCheckOut:     b.ActualCheckOut,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}

	if !b.HoldExpiresAt.IsZero() && b.Status == domain.BookingStatusPending {
		expiresAt := b.HoldExpiresAt
		resp.HoldExpiresAt = &expiresAt
	}

	for _, rate := range b.PriceBreakdown {
		resp.PriceBreakdown = append(resp.PriceBreakdown, DailyRateResponse{
			Date:  rate.Date.Format(domain.DateLayout),
			Price: rate.Price,
		})
	}
	for _, refund := range b.Refunds {
		resp.Refunds = append(resp.Refunds, RefundResponse{
			RefundID:    refund.RefundID,
			Amount:      refund.Amount,
			Reason:      refund.Reason,
			ProcessedBy: refund.ProcessedBy,
			ProcessedAt: refund.ProcessedAt,
		})
	}

	return resp
}
