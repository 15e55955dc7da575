package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room is a rentable unit. Room administration lives outside the engine;
// bookings reference rooms by id and the engine only reads identity, capacity
// and the base price used when no explicit day price exists.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	BasePrice decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
