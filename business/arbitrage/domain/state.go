package domain

import (
	"time"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
)

// EngineState is the single mutable record tracking the engine mode and the
// annotations of the currently held position. The mode state machine owns
// it; nothing else writes it.
type EngineState struct {
	Mode        Mode
	Direction   pricingdomain.Direction // entry direction, empty when flat
	EntrySpread decimal.Decimal
	EntryTime   time.Time
	HasEntry    bool
}

// NewEngineState returns the initial state: ModeOffensive, no entry.
func NewEngineState() *EngineState {
	return &EngineState{Mode: ModeOffensive}
}

// RecordEntry annotates the state with the spread and time of an entry.
// A later entry that tops up a partial position overwrites the annotation,
// so the position is unwound as if it had a single entry price. Rebalance
// orders do not pass through here and leave the annotation untouched.
func (s *EngineState) RecordEntry(dir pricingdomain.Direction, spread decimal.Decimal, now time.Time) {
	s.Direction = dir
	s.EntrySpread = spread
	s.EntryTime = now
	s.HasEntry = true
}

// Expired reports whether the annotated position has been held longer than
// maxHold.
func (s *EngineState) Expired(now time.Time, maxHold time.Duration) bool {
	return s.HasEntry && now.Sub(s.EntryTime) > maxHold
}

// Advance applies one cycle's mode transition. Going flat resets the whole
// state to its zero value in ModeOffensive, clearing the entry annotations.
// A position held past maxHold flips the mode to ModeDefensive, where it
// stays until flat.
//
// Exposure with no recorded entry (position found at startup, or placed
// outside the engine) is adopted with now as its entry time and a zero
// entry spread, so the hold clock still runs on it.
func (s *EngineState) Advance(flat bool, now time.Time, maxHold time.Duration) {
	if flat {
		*s = EngineState{Mode: ModeOffensive}
		return
	}
	if !s.HasEntry {
		s.EntryTime = now
		s.HasEntry = true
	}
	if s.Mode == ModeOffensive && s.Expired(now, maxHold) {
		s.Mode = ModeDefensive
	}
}
