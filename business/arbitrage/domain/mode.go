// Package domain contains the core domain types for the arbitrage engine:
// the engine mode machine, round-trip P&L and the per-cycle record.
package domain

// Mode governs whether the engine may open new exposure.
type Mode string

const (
	// ModeOffensive allows new entries. The engine starts here and
	// returns here whenever both venues report exactly flat.
	ModeOffensive Mode = "offensive"

	// ModeDefensive permits closing orders only. Entered when a position
	// has been held longer than the configured maximum, and left only by
	// going flat.
	ModeDefensive Mode = "defensive"
)

// ExitReason records why a round trip was closed.
type ExitReason string

const (
	ExitProfitTarget ExitReason = "profit_target"
	ExitStopLoss     ExitReason = "stop_loss"

	// ExitTimeout marks a closure forced by ModeDefensive while the
	// position sat between the profit and stop thresholds.
	ExitTimeout ExitReason = "timeout"
)
