package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/business/venue/infra/paper"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/instrument"
	"github.com/hirokim/crossarb/internal/logger"
)

func testInstrument() *instrument.Instrument {
	return instrument.New("BTC_JPY",
		decimal.NewFromInt(1),
		decimal.RequireFromString("0.0001"),
		decimal.RequireFromString("0.0001"),
	)
}

func testControllerConfig() ControllerConfig {
	return ControllerConfig{
		SymbolA:        "BTC_JPY",
		SymbolB:        "btc_jpy",
		EntryThreshold: decimal.RequireFromString("3000"),
		Exits: domain.ExitThresholds{
			ProfitTarget: decimal.RequireFromString("1000"),
			StopLoss:     decimal.RequireFromString("-5000"),
		},
		FeeRate:         decimal.RequireFromString("0.0002"),
		TargetQty:       decimal.RequireFromString("0.01"),
		Preferred:       pricingdomain.DirectionAToB,
		ConfirmTimeout:  time.Second,
		ConfirmInterval: 200 * time.Millisecond,
	}
}

func newTestController(t *testing.T, venueA, venueB *paper.Venue, cfg ControllerConfig) *Controller {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	c, err := NewController(venueA, venueB, testInstrument(), clk, cfg, log)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

// installBooks gives both paper venues a one-level book so that orders
// priced at the touch fill immediately.
func installBooks(venueA, venueB *paper.Venue, bidA, askA, bidB, askB string) {
	venueA.SetBook(&venuedomain.OrderBook{
		Symbol: "BTC_JPY",
		Bids:   []venuedomain.BookLevel{{Price: decimal.RequireFromString(bidA), Size: decimal.NewFromInt(1)}},
		Asks:   []venuedomain.BookLevel{{Price: decimal.RequireFromString(askA), Size: decimal.NewFromInt(1)}},
	})
	venueB.SetBook(&venuedomain.OrderBook{
		Symbol: "btc_jpy",
		Bids:   []venuedomain.BookLevel{{Price: decimal.RequireFromString(bidB), Size: decimal.NewFromInt(1)}},
		Asks:   []venuedomain.BookLevel{{Price: decimal.RequireFromString(askB), Size: decimal.NewFromInt(1)}},
	})
}

func pairQuotes(bidA, askA, bidB, askB string) pricingdomain.SpreadPair {
	mk := func(venue, symbol, bid, ask string) pricingdomain.Quote {
		return pricingdomain.Quote{
			Venue:   venue,
			Symbol:  symbol,
			Bid:     decimal.RequireFromString(bid),
			BidSize: decimal.NewFromInt(1),
			Ask:     decimal.RequireFromString(ask),
			AskSize: decimal.NewFromInt(1),
		}
	}
	return pricingdomain.ComputeSpreads(
		mk("gmocoin", "BTC_JPY", bidA, askA),
		mk("bitbank", "btc_jpy", bidB, askB),
	)
}

func snapshotPositions(t *testing.T, venueA, venueB *paper.Venue) Positions {
	t.Helper()
	ctx := context.Background()
	a, err := venueA.GetPosition(ctx, "BTC_JPY")
	if err != nil {
		t.Fatalf("GetPosition A: %v", err)
	}
	b, err := venueB.GetPosition(ctx, "btc_jpy")
	if err != nil {
		t.Fatalf("GetPosition B: %v", err)
	}
	return Positions{A: a, B: b}
}

func TestController_EntryOpensBothLegs(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, trade, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionEntry {
		t.Fatalf("action = %s, want %s", action, domain.ActionEntry)
	}
	if trade != nil {
		t.Error("entry should not produce a trade")
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.A.Long.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("venue A long = %s, want 0.01", after.A.Long)
	}
	if !after.B.Short.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("venue B short = %s, want 0.01", after.B.Short)
	}

	if !state.HasEntry {
		t.Fatal("entry should be annotated on the state")
	}
	if state.Direction != pricingdomain.DirectionAToB {
		t.Errorf("direction = %s, want %s", state.Direction, pricingdomain.DirectionAToB)
	}
	if !state.EntrySpread.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("entry spread = %s, want 3500", state.EntrySpread)
	}
}

func TestController_EntrySizedToBookLevel(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	// Only 0.004 is on offer at venue B's bid.
	spreads.QuoteB.BidSize = decimal.RequireFromString("0.004")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionEntry {
		t.Fatalf("action = %s, want %s", action, domain.ActionEntry)
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.A.Long.Equal(decimal.RequireFromString("0.004")) {
		t.Errorf("venue A long = %s, want 0.004", after.A.Long)
	}
	if !after.B.Short.Equal(decimal.RequireFromString("0.004")) {
		t.Errorf("venue B short = %s, want 0.004", after.B.Short)
	}
}

func TestController_NoEntryBelowThreshold(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5002500", "5003000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	// AToB = 2500, below the 3000 threshold.
	spreads := pairQuotes("4999000", "5000000", "5002500", "5003000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionNone {
		t.Errorf("action = %s, want %s", action, domain.ActionNone)
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.A.IsFlat() || !after.B.IsFlat() {
		t.Error("no order should have been placed")
	}
}

func TestController_DefensiveBlocksEntry(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	state.Mode = domain.ModeDefensive
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionNone {
		t.Errorf("action = %s, want %s: defensive mode never opens", action, domain.ActionNone)
	}
	after := snapshotPositions(t, venueA, venueB)
	if !after.A.IsFlat() || !after.B.IsFlat() {
		t.Error("defensive mode placed an opening order")
	}
}

func TestController_SweepShortCircuits(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	// A resting order from a previous cycle that never filled.
	ctx := context.Background()
	resting := venuedomain.NewOrder("gmocoin", "BTC_JPY", venuedomain.SideBuy,
		decimal.RequireFromString("4990000"), decimal.RequireFromString("0.01"))
	if _, err := venueA.PlaceOrder(ctx, resting); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(ctx, spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionSweep {
		t.Fatalf("action = %s, want %s", action, domain.ActionSweep)
	}

	open, _ := venueA.ListOpenOrders(ctx, "BTC_JPY")
	if len(open) != 0 {
		t.Errorf("open orders = %d, want 0", len(open))
	}
	// The sweep consumed the cycle: no entry despite the signal.
	after := snapshotPositions(t, venueA, venueB)
	if !after.A.IsFlat() {
		t.Error("sweep cycle must not also enter")
	}
}

func TestController_FrozenSweepsButNeverPlaces(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	ctx := context.Background()
	resting := venuedomain.NewOrder("gmocoin", "BTC_JPY", venuedomain.SideBuy,
		decimal.RequireFromString("4990000"), decimal.RequireFromString("0.01"))
	if _, err := venueA.PlaceOrder(ctx, resting); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(ctx, spreads, pos, state, true)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionSweep {
		t.Fatalf("action = %s, want %s: cancels stay allowed while frozen", action, domain.ActionSweep)
	}

	action, _, err = c.Act(ctx, spreads, pos, state, true)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionNone {
		t.Errorf("action = %s, want %s: frozen cycles place nothing", action, domain.ActionNone)
	}
	after := snapshotPositions(t, venueA, venueB)
	if !after.A.IsFlat() || !after.B.IsFlat() {
		t.Error("frozen cycle placed an order")
	}
}

func TestController_StalePositionsBlockActions(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)
	pos.A = pos.A.MarkedStale()

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionNone {
		t.Errorf("action = %s, want %s: stale data must not size orders", action, domain.ActionNone)
	}
}

func TestController_RebalanceTopsUpVenueA(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	// B reached target but A only partially filled.
	venueA.SetPosition(venuedomain.Position{Symbol: "BTC_JPY", Long: decimal.RequireFromString("0.006")})
	venueB.SetPosition(venuedomain.Position{Symbol: "btc_jpy", Short: decimal.RequireFromString("0.01")})

	// No entry signal; only the imbalance drives the action.
	spreads := pairQuotes("4999000", "5000000", "5001000", "5002000")
	state := domain.NewEngineState()
	state.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionRebalance {
		t.Fatalf("action = %s, want %s", action, domain.ActionRebalance)
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.A.Long.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("venue A long = %s, want 0.01 after topping up", after.A.Long)
	}
	// The annotation survives a rebalance untouched.
	if !state.EntrySpread.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("entry spread = %s, want unchanged 3500", state.EntrySpread)
	}
}

func TestController_RebalanceGrowsLaggingVenueB(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5001000", "5002000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	// A filled in full but B's offsetting leg only half filled.
	venueA.SetPosition(venuedomain.Position{Symbol: "BTC_JPY", Long: decimal.RequireFromString("0.01")})
	venueB.SetPosition(venuedomain.Position{Symbol: "btc_jpy", Short: decimal.RequireFromString("0.005")})

	// No entry signal, and the unwind P&L sits between both exit
	// thresholds, so only the imbalance can act.
	spreads := pairQuotes("4999000", "5000000", "5001000", "5002000")
	state := domain.NewEngineState()
	state.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action != domain.ActionRebalance {
		t.Fatalf("action = %s, want %s", action, domain.ActionRebalance)
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.B.Net().Equal(decimal.RequireFromString("-0.01")) {
		t.Errorf("venue B net = %s, want -0.01 after restoring the hedge", after.B.Net())
	}
	if !after.A.Long.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("venue A long = %s, want untouched 0.01", after.A.Long)
	}
}

func TestController_ExitDecisions(t *testing.T) {
	tests := []struct {
		name       string
		bidA, askA string
		bidB, askB string
		mode       domain.Mode
		wantAction domain.Action
		wantReason domain.ExitReason
	}{
		{
			// Unwind spread BToA = 5001000 - 5002500 = -1500;
			// net = 3500 - 1500 - 0.0002*5000 = 1999 >= 1000.
			name: "profit target reached",
			bidA: "5001000", askA: "5002000",
			bidB: "5002000", askB: "5002500",
			mode:       domain.ModeOffensive,
			wantAction: domain.ActionExit,
			wantReason: domain.ExitProfitTarget,
		},
		{
			// Unwind spread = 4994000 - 5003000 = -9000;
			// net = 3500 - 9000 - 0.0002*12500 = -5502.5 <= -5000.
			name: "stop loss breached",
			bidA: "4994000", askA: "4995000",
			bidB: "5002000", askB: "5003000",
			mode:       domain.ModeOffensive,
			wantAction: domain.ActionExit,
			wantReason: domain.ExitStopLoss,
		},
		{
			// Unwind spread = 4999000 - 5002000 = -3000;
			// net = 3500 - 3000 - 0.0002*6500 = 498.7, between thresholds.
			name: "between thresholds holds in offensive",
			bidA: "4999000", askA: "5000000",
			bidB: "5001500", askB: "5002000",
			mode:       domain.ModeOffensive,
			wantAction: domain.ActionNone,
		},
		{
			name: "defensive forces timeout closure",
			bidA: "4999000", askA: "5000000",
			bidB: "5001500", askB: "5002000",
			mode:       domain.ModeDefensive,
			wantAction: domain.ActionExit,
			wantReason: domain.ExitTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			venueA := paper.New("gmocoin", "BTC_JPY")
			venueB := paper.New("bitbank", "btc_jpy")
			installBooks(venueA, venueB, tt.bidA, tt.askA, tt.bidB, tt.askB)
			c := newTestController(t, venueA, venueB, testControllerConfig())

			venueA.SetPosition(venuedomain.Position{Symbol: "BTC_JPY", Long: decimal.RequireFromString("0.01")})
			venueB.SetPosition(venuedomain.Position{Symbol: "btc_jpy", Short: decimal.RequireFromString("0.01")})

			spreads := pairQuotes(tt.bidA, tt.askA, tt.bidB, tt.askB)
			state := domain.NewEngineState()
			state.RecordEntry(pricingdomain.DirectionAToB, decimal.RequireFromString("3500"), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
			state.Mode = tt.mode
			pos := snapshotPositions(t, venueA, venueB)

			action, trade, err := c.Act(context.Background(), spreads, pos, state, false)
			if err != nil {
				t.Fatalf("Act: %v", err)
			}
			if action != tt.wantAction {
				t.Fatalf("action = %s, want %s", action, tt.wantAction)
			}
			if tt.wantAction != domain.ActionExit {
				return
			}

			if trade == nil {
				t.Fatal("exit should return a candidate trade")
			}
			if trade.ExitReason != tt.wantReason {
				t.Errorf("reason = %s, want %s", trade.ExitReason, tt.wantReason)
			}
			after := snapshotPositions(t, venueA, venueB)
			if !after.A.IsFlat() || !after.B.IsFlat() {
				t.Error("closing orders should flatten both venues")
			}
		})
	}
}

func TestController_RejectedLegLeavesOffsetUnplaced(t *testing.T) {
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")
	c := newTestController(t, venueA, venueB, testControllerConfig())

	venueA.FailPlacements(venuedomain.ErrOrderRejected)

	spreads := pairQuotes("4999000", "5000000", "5003500", "5004000")
	state := domain.NewEngineState()
	pos := snapshotPositions(t, venueA, venueB)

	action, _, err := c.Act(context.Background(), spreads, pos, state, false)
	if err == nil {
		t.Fatal("expected the rejection to surface")
	}
	if action != domain.ActionEntry {
		t.Errorf("action = %s, want %s", action, domain.ActionEntry)
	}

	after := snapshotPositions(t, venueA, venueB)
	if !after.B.IsFlat() {
		t.Error("second leg must not be placed after the first is rejected")
	}
	if state.HasEntry {
		t.Error("no entry annotation when nothing was opened")
	}
}
