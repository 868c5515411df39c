package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
)

func TestEngineState_Advance(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	maxHold := 12 * time.Hour

	t.Run("fresh position stays offensive", func(t *testing.T) {
		s := NewEngineState()
		s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), base)

		s.Advance(false, base.Add(time.Hour), maxHold)
		if s.Mode != ModeOffensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeOffensive)
		}
	})

	t.Run("position past max hold turns defensive", func(t *testing.T) {
		s := NewEngineState()
		s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), base)

		s.Advance(false, base.Add(maxHold+time.Second), maxHold)
		if s.Mode != ModeDefensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeDefensive)
		}
	})

	t.Run("exactly at max hold is not expired", func(t *testing.T) {
		s := NewEngineState()
		s.RecordEntry(pricingdomain.DirectionBToA, decimal.RequireFromString("1200"), base)

		s.Advance(false, base.Add(maxHold), maxHold)
		if s.Mode != ModeOffensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeOffensive)
		}
	})

	t.Run("flat resets everything to zero", func(t *testing.T) {
		s := NewEngineState()
		s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), base)
		s.Advance(false, base.Add(maxHold+time.Hour), maxHold)
		if s.Mode != ModeDefensive {
			t.Fatalf("setup: mode = %s, want %s", s.Mode, ModeDefensive)
		}

		s.Advance(true, base.Add(maxHold+2*time.Hour), maxHold)
		if s.Mode != ModeOffensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeOffensive)
		}
		if s.HasEntry {
			t.Error("HasEntry should be cleared")
		}
		if !s.EntrySpread.IsZero() {
			t.Errorf("EntrySpread = %s, want 0", s.EntrySpread)
		}
		if s.Direction != "" {
			t.Errorf("Direction = %s, want empty", s.Direction)
		}
	})

	t.Run("defensive does not revert while holding", func(t *testing.T) {
		s := NewEngineState()
		s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), base)
		s.Advance(false, base.Add(maxHold+time.Hour), maxHold)

		s.Advance(false, base.Add(maxHold+2*time.Hour), maxHold)
		if s.Mode != ModeDefensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeDefensive)
		}
	})

	t.Run("unannotated exposure is adopted", func(t *testing.T) {
		s := NewEngineState()

		s.Advance(false, base, maxHold)
		if !s.HasEntry {
			t.Fatal("expected exposure to be adopted")
		}
		if !s.EntryTime.Equal(base) {
			t.Errorf("EntryTime = %s, want %s", s.EntryTime, base)
		}

		// The adopted entry time drives the hold clock as usual.
		s.Advance(false, base.Add(maxHold+time.Second), maxHold)
		if s.Mode != ModeDefensive {
			t.Errorf("mode = %s, want %s", s.Mode, ModeDefensive)
		}
	})
}

func TestEngineState_RecordEntry(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	s := NewEngineState()
	s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), base)

	// A top-up entry overwrites the annotation: the position is later
	// unwound as if the whole size came in at the second spread.
	s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("4100"), base.Add(time.Minute))

	if !s.EntrySpread.Equal(decimal.RequireFromString("4100")) {
		t.Errorf("EntrySpread = %s, want 4100", s.EntrySpread)
	}
	if !s.EntryTime.Equal(base.Add(time.Minute)) {
		t.Errorf("EntryTime = %s, want %s", s.EntryTime, base.Add(time.Minute))
	}
}

func TestNewTrade(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	s := NewEngineState()
	s.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("39"), base)

	trade := NewTrade(
		"BTC_JPY",
		*s,
		decimal.RequireFromString("-45"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.001"),
		ExitStopLoss,
		base.Add(time.Hour),
	)

	if trade.ID == "" {
		t.Error("trade should get an id")
	}
	if !trade.GrossPnL.Equal(decimal.RequireFromString("-6")) {
		t.Errorf("GrossPnL = %s, want -6", trade.GrossPnL)
	}
	if !trade.FeeCost.Equal(decimal.RequireFromString("0.084")) {
		t.Errorf("FeeCost = %s, want 0.084", trade.FeeCost)
	}
	if !trade.NetPnL.Equal(decimal.RequireFromString("-6.084")) {
		t.Errorf("NetPnL = %s, want -6.084", trade.NetPnL)
	}
	if trade.ExitReason != ExitStopLoss {
		t.Errorf("ExitReason = %s, want %s", trade.ExitReason, ExitStopLoss)
	}
	if !trade.EntryTime.Equal(base) {
		t.Errorf("EntryTime = %s, want %s", trade.EntryTime, base)
	}
}
