package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
)

// DayRecordResponse is the occupancy state of one night.
type DayRecordResponse struct {
	Date          string     `json:"date"`
	State         string     `json:"state"`
	BookingID     string     `json:"booking_id,omitempty"`
	BlockReason   string     `json:"block_reason,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// CalendarResponse is the occupancy calendar of a room over a range.
type CalendarResponse struct {
	RoomID   string              `json:"room_id"`
	CheckIn  string              `json:"check_in"`
	CheckOut string              `json:"check_out"`
	Days     []DayRecordResponse `json:"days"`
}

// FromDayRecords converts calendar day records to an API response.
func FromDayRecords(roomID string, rng domain.DateRange, records []domain.DayRecord) *CalendarResponse {
	resp := &CalendarResponse{
		RoomID:   roomID,
		CheckIn:  rng.CheckIn.Format(domain.DateLayout),
		CheckOut: rng.CheckOut.Format(domain.DateLayout),
		Days:     make([]DayRecordResponse, 0, len(records)),
	}
	for _, record := range records {
		day := DayRecordResponse{
			Date:        record.Date.Format(domain.DateLayout),
			State:       string(record.State),
			BookingID:   record.BookingID,
			BlockReason: string(record.BlockReason),
		}
		if !record.HoldExpiresAt.IsZero() {
			expiresAt := record.HoldExpiresAt
			day.HoldExpiresAt = &expiresAt
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

// BlockRequest marks a range of nights BLOCKED.
type BlockRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// UnblockRequest returns a range of BLOCKED nights to FREE.
type UnblockRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
}

// DayPriceRequest sets the price of one night.
type DayPriceRequest struct {
	Date      string          `json:"date" binding:"required"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Reason    string          `json:"reason,omitempty"`
	UpdatedBy string          `json:"updated_by,omitempty"`
}

// SetPricesRequest replaces the explicit prices inside a range.
type SetPricesRequest struct {
	CheckIn  string            `json:"check_in" binding:"required"`
	CheckOut string            `json:"check_out" binding:"required"`
	Days     []DayPriceRequest `json:"days" binding:"required"`
}

// PriceRecordResponse is the resolved price of one night.
type PriceRecordResponse struct {
	Date   string          `json:"date"`
	Price  decimal.Decimal `json:"price"`
	Reason string          `json:"reason"`
}

// PricesResponse is the resolved nightly pricing of a room over a range.
type PricesResponse struct {
	RoomID   string                `json:"room_id"`
	CheckIn  string                `json:"check_in"`
	CheckOut string                `json:"check_out"`
	Days     []PriceRecordResponse `json:"days"`
	Total    decimal.Decimal       `json:"total"`
}

// FromPriceRecords converts resolved price records to an API response.
func FromPriceRecords(roomID string, rng domain.DateRange, records []domain.PriceRecord) *PricesResponse {
	resp := &PricesResponse{
		RoomID:   roomID,
		CheckIn:  rng.CheckIn.Format(domain.DateLayout),
		CheckOut: rng.CheckOut.Format(domain.DateLayout),
		Days:     make([]PriceRecordResponse, 0, len(records)),
		Total:    decimal.Zero,
	}
	for _, record := range records {
		resp.Days = append(resp.Days, PriceRecordResponse{
			Date:   record.Date.Format(domain.DateLayout),
			Price:  record.Price,
			Reason: string(record.Reason),
		})
		resp.Total = resp.Total.Add(record.Price)
	}
	return resp
}
