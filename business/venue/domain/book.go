package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel represents a single price level in an order book.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook represents a snapshot of one venue's order book. Levels are
// sorted best-first: Bids descending by price, Asks ascending.
type OrderBook struct {
	Venue     string
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// BestBid returns the best (highest) bid level, or nil for an empty side.
func (b *OrderBook) BestBid() *BookLevel {
	if len(b.Bids) == 0 {
		return nil
	}
	return &b.Bids[0]
}

// BestAsk returns the best (lowest) ask level, or nil for an empty side.
func (b *OrderBook) BestAsk() *BookLevel {
	if len(b.Asks) == 0 {
		return nil
	}
	return &b.Asks[0]
}

// Age returns how old the snapshot is relative to now.
func (b *OrderBook) Age(now time.Time) time.Duration {
	return now.Sub(b.Timestamp)
}
