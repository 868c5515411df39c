package domain

import "github.com/shopspring/decimal"

// Direction identifies which leg buys and which leg sells.
type Direction string

const (
	// DirectionAToB means buy on venue A, sell on venue B.
	DirectionAToB Direction = "a_to_b"

	// DirectionBToA means buy on venue B, sell on venue A.
	DirectionBToA Direction = "b_to_a"
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == DirectionAToB {
		return DirectionBToA
	}
	return DirectionAToB
}

// SpreadPair holds both directional spreads for one pair of quotes.
// Each spread is what a round trip earns per unit at the top of book:
// the sell venue's bid minus the buy venue's ask.
type SpreadPair struct {
	QuoteA Quote
	QuoteB Quote

	// AToB = bid(B) - ask(A): buy A, sell B.
	AToB decimal.Decimal

	// BToA = bid(A) - ask(B): buy B, sell A.
	BToA decimal.Decimal
}

// ComputeSpreads calculates both directional spreads from two quotes.
func ComputeSpreads(a, b Quote) SpreadPair {
	return SpreadPair{
		QuoteA: a,
		QuoteB: b,
		AToB:   b.Bid.Sub(a.Ask),
		BToA:   a.Bid.Sub(b.Ask),
	}
}

// For returns the spread in the given direction.
func (s SpreadPair) For(d Direction) decimal.Decimal {
	if d == DirectionAToB {
		return s.AToB
	}
	return s.BToA
}

// EntrySignal returns the direction to enter and true when some direction
// strictly exceeds threshold. The preferred direction is checked first, so
// it wins ties and is taken whenever it clears the threshold, even if the
// other direction is wider.
func (s SpreadPair) EntrySignal(threshold decimal.Decimal, preferred Direction) (Direction, bool) {
	if s.For(preferred).GreaterThan(threshold) {
		return preferred, true
	}
	other := preferred.Opposite()
	if s.For(other).GreaterThan(threshold) {
		return other, true
	}
	return "", false
}
