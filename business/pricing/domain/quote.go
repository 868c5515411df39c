// Package domain contains the core domain types for the pricing context.
package domain

import (
	"errors"
	"time"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/shopspring/decimal"
)

// ErrQuoteUnavailable means no usable top of book exists for a venue.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is the top of book for one venue at one point in time.
type Quote struct {
	Venue     string
	Symbol    string
	Bid       decimal.Decimal
	BidSize   decimal.Decimal
	Ask       decimal.Decimal
	AskSize   decimal.Decimal
	Timestamp time.Time
}

// QuoteFromBook extracts the top of book from an order book snapshot.
// A book with an empty side yields ErrQuoteUnavailable: a one-sided quote
// cannot price either spread direction.
func QuoteFromBook(book *venuedomain.OrderBook) (Quote, error) {
	if book == nil {
		return Quote{}, ErrQuoteUnavailable
	}
	bid := book.BestBid()
	ask := book.BestAsk()
	if bid == nil || ask == nil {
		return Quote{}, ErrQuoteUnavailable
	}
	return Quote{
		Venue:     book.Venue,
		Symbol:    book.Symbol,
		Bid:       bid.Price,
		BidSize:   bid.Size,
		Ask:       ask.Price,
		AskSize:   ask.Size,
		Timestamp: book.Timestamp,
	}, nil
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}
