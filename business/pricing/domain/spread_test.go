package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
)

func quote(venue, bid, ask string) Quote {
	return Quote{
		Venue:     venue,
		Symbol:    "BTC_JPY",
		Bid:       decimal.RequireFromString(bid),
		BidSize:   decimal.RequireFromString("0.5"),
		Ask:       decimal.RequireFromString(ask),
		AskSize:   decimal.RequireFromString("0.5"),
		Timestamp: time.Now(),
	}
}

func TestComputeSpreads(t *testing.T) {
	tests := []struct {
		name     string
		bidA     string
		askA     string
		bidB     string
		askB     string
		wantAToB string
		wantBToA string
	}{
		{
			name: "b trades above a",
			bidA: "4999000", askA: "5000000",
			bidB: "5003500", askB: "5004500",
			wantAToB: "3500",  // bid(B) - ask(A)
			wantBToA: "-5500", // bid(A) - ask(B)
		},
		{
			name: "a trades above b",
			bidA: "5003500", askA: "5004500",
			bidB: "4999000", askB: "5000000",
			wantAToB: "-5500",
			wantBToA: "3500",
		},
		{
			name: "identical books are negative both ways",
			bidA: "4999000", askA: "5000000",
			bidB: "4999000", askB: "5000000",
			wantAToB: "-1000",
			wantBToA: "-1000",
		},
		{
			name: "crossed venues profitable both ways",
			bidA: "5001000", askA: "5000000",
			bidB: "5001000", askB: "5000000",
			wantAToB: "1000",
			wantBToA: "1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeSpreads(quote("gmocoin", tt.bidA, tt.askA), quote("bitbank", tt.bidB, tt.askB))

			if !s.AToB.Equal(decimal.RequireFromString(tt.wantAToB)) {
				t.Errorf("AToB = %s, want %s", s.AToB, tt.wantAToB)
			}
			if !s.BToA.Equal(decimal.RequireFromString(tt.wantBToA)) {
				t.Errorf("BToA = %s, want %s", s.BToA, tt.wantBToA)
			}
		})
	}
}

// The buy leg must always price at the ask and the sell leg at the bid.
// Using the same side on both venues inflates the spread by the width of
// the books.
func TestComputeSpreads_UsesOpposingSides(t *testing.T) {
	a := quote("gmocoin", "4999000", "5000000")
	b := quote("bitbank", "5003500", "5004500")

	s := ComputeSpreads(a, b)

	bidMinusBid := b.Bid.Sub(a.Bid)
	if s.AToB.Equal(bidMinusBid) {
		t.Errorf("AToB %s equals bid-bid difference; spread must use ask(A)", s.AToB)
	}
	want := b.Bid.Sub(a.Ask)
	if !s.AToB.Equal(want) {
		t.Errorf("AToB = %s, want bid(B)-ask(A) = %s", s.AToB, want)
	}
}

func TestSpreadPair_EntrySignal(t *testing.T) {
	threshold := decimal.RequireFromString("3000")

	tests := []struct {
		name      string
		aToB      string
		bToA      string
		preferred Direction
		wantDir   Direction
		wantOK    bool
	}{
		{
			name: "preferred direction clears threshold",
			aToB: "3500", bToA: "-5500",
			preferred: DirectionAToB,
			wantDir:   DirectionAToB, wantOK: true,
		},
		{
			name: "other direction clears threshold",
			aToB: "-5500", bToA: "3500",
			preferred: DirectionAToB,
			wantDir:   DirectionBToA, wantOK: true,
		},
		{
			name: "preferred wins even when other is wider",
			aToB: "3200", bToA: "4000",
			preferred: DirectionAToB,
			wantDir:   DirectionAToB, wantOK: true,
		},
		{
			name: "exactly at threshold is no signal",
			aToB: "3000", bToA: "3000",
			preferred: DirectionAToB,
			wantOK:    false,
		},
		{
			name: "nothing clears threshold",
			aToB: "100", bToA: "-4100",
			preferred: DirectionBToA,
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SpreadPair{
				AToB: decimal.RequireFromString(tt.aToB),
				BToA: decimal.RequireFromString(tt.bToA),
			}
			dir, ok := s.EntrySignal(threshold, tt.preferred)
			if ok != tt.wantOK {
				t.Fatalf("EntrySignal ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && dir != tt.wantDir {
				t.Errorf("EntrySignal direction = %v, want %v", dir, tt.wantDir)
			}
		})
	}
}

func TestQuoteFromBook(t *testing.T) {
	level := func(p, s string) venuedomain.BookLevel {
		return venuedomain.BookLevel{Price: decimal.RequireFromString(p), Size: decimal.RequireFromString(s)}
	}

	t.Run("top of book extracted", func(t *testing.T) {
		book := &venuedomain.OrderBook{
			Venue:  "gmocoin",
			Symbol: "BTC_JPY",
			Bids:   []venuedomain.BookLevel{level("4999000", "0.3"), level("4998000", "1.0")},
			Asks:   []venuedomain.BookLevel{level("5000000", "0.2"), level("5001000", "0.8")},
		}

		q, err := QuoteFromBook(book)
		if err != nil {
			t.Fatalf("QuoteFromBook: %v", err)
		}
		if !q.Bid.Equal(decimal.RequireFromString("4999000")) {
			t.Errorf("Bid = %s, want 4999000", q.Bid)
		}
		if !q.AskSize.Equal(decimal.RequireFromString("0.2")) {
			t.Errorf("AskSize = %s, want 0.2", q.AskSize)
		}
	})

	t.Run("one-sided book is unavailable", func(t *testing.T) {
		book := &venuedomain.OrderBook{
			Venue: "bitbank",
			Bids:  []venuedomain.BookLevel{level("4999000", "0.3")},
		}
		if _, err := QuoteFromBook(book); err != ErrQuoteUnavailable {
			t.Errorf("expected ErrQuoteUnavailable, got %v", err)
		}
	})

	t.Run("nil book is unavailable", func(t *testing.T) {
		if _, err := QuoteFromBook(nil); err != ErrQuoteUnavailable {
			t.Errorf("expected ErrQuoteUnavailable, got %v", err)
		}
	})
}
