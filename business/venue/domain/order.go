// Package domain contains the core domain types for the venue context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side represents the side of an order (buy or sell).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the opposing side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatus represents the lifecycle state of an order on a venue.
type OrderStatus string

const (
	// StatusOpen means the order rests on the venue, possibly partially filled.
	StatusOpen OrderStatus = "open"

	// StatusFilled means the order is completely filled.
	StatusFilled OrderStatus = "filled"

	// StatusCancelled means the order was cancelled before completion.
	StatusCancelled OrderStatus = "cancelled"

	// StatusRejected means the venue refused the order.
	StatusRejected OrderStatus = "rejected"

	// StatusUnknown means the submission outcome could not be determined.
	// Orders in this state are resolved by reconciling against venue state.
	StatusUnknown OrderStatus = "unknown"
)

// Order represents an order on a trading venue.
type Order struct {
	Venue        string
	Symbol       string
	Side         Side
	Price        decimal.Decimal
	Qty          decimal.Decimal
	FilledQty    decimal.Decimal
	ClientID     string // client-assigned id, survives ambiguous submissions
	VenueOrderID string // venue-assigned id, empty until acknowledged
	Status       OrderStatus
	CreatedAt    time.Time
}

// NewOrder creates an order with a fresh client id.
func NewOrder(venue, symbol string, side Side, price, qty decimal.Decimal) Order {
	return Order{
		Venue:     venue,
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Qty:       qty,
		ClientID:  uuid.NewString(),
		Status:    StatusOpen,
		CreatedAt: time.Now(),
	}
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() decimal.Decimal {
	rem := o.Qty.Sub(o.FilledQty)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// IsTerminal returns true when the order can no longer change state.
func (o Order) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled || o.Status == StatusRejected
}
