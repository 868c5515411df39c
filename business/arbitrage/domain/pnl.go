package domain

import "github.com/shopspring/decimal"

// NetPnL returns the per-unit profit of a round trip: the spread earned at
// entry plus the spread earned unwinding, less taker fees charged on the
// absolute value of both.
func NetPnL(entrySpread, unwindSpread, feeRate decimal.Decimal) decimal.Decimal {
	gross := entrySpread.Add(unwindSpread)
	fees := feeRate.Mul(entrySpread.Abs().Add(unwindSpread.Abs()))
	return gross.Sub(fees)
}

// ExitThresholds hold the per-unit net P&L levels that close a position.
type ExitThresholds struct {
	ProfitTarget decimal.Decimal // close when net P&L >= this
	StopLoss     decimal.Decimal // close when net P&L <= this
}

// Decide returns the exit reason for netPnL, if any. Both comparisons are
// inclusive. In ModeDefensive a position sitting between the thresholds is
// still closed, with reason ExitTimeout.
func (t ExitThresholds) Decide(netPnL decimal.Decimal, mode Mode) (ExitReason, bool) {
	switch {
	case netPnL.GreaterThanOrEqual(t.ProfitTarget):
		return ExitProfitTarget, true
	case netPnL.LessThanOrEqual(t.StopLoss):
		return ExitStopLoss, true
	case mode == ModeDefensive:
		return ExitTimeout, true
	}
	return "", false
}
