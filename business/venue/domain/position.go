package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents the held exposure on one venue, as reported by the
// venue itself. Long and Short are tracked separately because leverage
// venues can hold both sides at once.
type Position struct {
	Venue     string
	Symbol    string
	Long      decimal.Decimal
	Short     decimal.Decimal
	UpdatedAt time.Time

	// Stale marks a position carried over from a previous read after a
	// fetch failure. Stale positions are safe to read but must never be
	// used to size new orders.
	Stale bool
}

// Net returns the signed exposure (long minus short).
func (p Position) Net() decimal.Decimal {
	return p.Long.Sub(p.Short)
}

// Gross returns the total exposure regardless of direction.
func (p Position) Gross() decimal.Decimal {
	return p.Long.Add(p.Short)
}

// IsFlat returns true when the venue holds no exposure at all.
func (p Position) IsFlat() bool {
	return p.Long.IsZero() && p.Short.IsZero()
}

// MarkedStale returns a copy flagged as stale, keeping the last known sizes.
func (p Position) MarkedStale() Position {
	p.Stale = true
	return p
}
