package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceReason labels why a day carries its price.
type PriceReason string

const (
	PriceReasonDefault PriceReason = "DEFAULT"
	PriceReasonSeason  PriceReason = "SEASON"
	PriceReasonEvent   PriceReason = "EVENT"
	PriceReasonSpecial PriceReason = "SPECIAL"
)

// PriceRecord is the nightly price for one (room, date) key. Pricing has no
// ownership coupling to bookings; it is read-only input at hold time.
type PriceRecord struct {
	RoomID    string
	Date      time.Time
	Price     decimal.Decimal
	Reason    PriceReason
	UpdatedBy string
	UpdatedAt time.Time
}
