package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
)

// Trade is one closed round trip. Immutable once written.
type Trade struct {
	ID          string
	Symbol      string
	Direction   pricingdomain.Direction
	Qty         decimal.Decimal
	EntryTime   time.Time
	EntrySpread decimal.Decimal
	ExitTime    time.Time
	ExitSpread  decimal.Decimal
	GrossPnL    decimal.Decimal // per unit: entry spread + exit spread
	FeeCost     decimal.Decimal // per unit
	NetPnL      decimal.Decimal // per unit
	ExitReason  ExitReason
}

// NewTrade builds the immutable record for a round trip that just closed.
func NewTrade(symbol string, state EngineState, exitSpread, qty, feeRate decimal.Decimal, reason ExitReason, closedAt time.Time) Trade {
	gross := state.EntrySpread.Add(exitSpread)
	fees := feeRate.Mul(state.EntrySpread.Abs().Add(exitSpread.Abs()))
	return Trade{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Direction:   state.Direction,
		Qty:         qty,
		EntryTime:   state.EntryTime,
		EntrySpread: state.EntrySpread,
		ExitTime:    closedAt,
		ExitSpread:  exitSpread,
		GrossPnL:    gross,
		FeeCost:     fees,
		NetPnL:      gross.Sub(fees),
		ExitReason:  reason,
	}
}

// Action identifies what the execution controller did in a cycle. At most
// one position-changing action is taken per cycle.
type Action string

const (
	ActionNone      Action = "none"
	ActionSweep     Action = "sweep"
	ActionEntry     Action = "entry"
	ActionRebalance Action = "rebalance"
	ActionExit      Action = "exit"
)

// CycleSnapshot is the append-only per-cycle record: both quotes, both
// directional spreads, both venue positions, the mode and the action taken.
type CycleSnapshot struct {
	Timestamp time.Time
	Symbol    string

	BidA decimal.Decimal
	AskA decimal.Decimal
	BidB decimal.Decimal
	AskB decimal.Decimal

	SpreadAToB decimal.Decimal
	SpreadBToA decimal.Decimal

	LongA  decimal.Decimal
	ShortA decimal.Decimal
	NetB   decimal.Decimal

	Mode   Mode
	Action Action

	// Trade is set on the cycle whose exit returned the position to flat.
	Trade *Trade
}

// MaxSpread returns the wider of the two directional spreads.
func (c CycleSnapshot) MaxSpread() decimal.Decimal {
	return decimal.Max(c.SpreadAToB, c.SpreadBToA)
}
