package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	"github.com/hirokim/crossarb/business/venue/infra/paper"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/logger"
)

type fakeQuotes struct {
	spreads pricingdomain.SpreadPair
	err     error
}

func (f *fakeQuotes) Spreads(ctx context.Context, venueA, venueB string) (pricingdomain.SpreadPair, error) {
	return f.spreads, f.err
}

type fakeCycleLog struct {
	cycles    []domain.CycleSnapshot
	trades    []domain.Trade
	appendErr error
}

func (f *fakeCycleLog) AppendCycle(ctx context.Context, snap domain.CycleSnapshot) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.cycles = append(f.cycles, snap)
	return nil
}

func (f *fakeCycleLog) RecordTrade(ctx context.Context, trade domain.Trade) error {
	f.trades = append(f.trades, trade)
	return nil
}

func (f *fakeCycleLog) Close() error { return nil }

type fakeReporter struct {
	cycles []domain.CycleSnapshot
	trades []domain.Trade
}

func (f *fakeReporter) Start(ctx context.Context) error       { return nil }
func (f *fakeReporter) ReportCycle(snap domain.CycleSnapshot) { f.cycles = append(f.cycles, snap) }
func (f *fakeReporter) ReportTrade(trade domain.Trade)        { f.trades = append(f.trades, trade) }
func (f *fakeReporter) Stop() error                           { return nil }

type engineHarness struct {
	engine   *Engine
	quotes   *fakeQuotes
	cycleLog *fakeCycleLog
	reporter *fakeReporter
	venueA   *paper.Venue
	venueB   *paper.Venue
	clk      *clock.Fake
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	installBooks(venueA, venueB, "4999000", "5000000", "5003500", "5004000")

	reconciler, err := NewReconciler(venueA, venueB, "BTC_JPY", "btc_jpy", log)
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}

	cfg := testControllerConfig()
	controller, err := NewController(venueA, venueB, testInstrument(), clk, cfg, log)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	quotes := &fakeQuotes{spreads: pairQuotes("4999000", "5000000", "5003500", "5004000")}
	cycleLog := &fakeCycleLog{}
	reporter := &fakeReporter{}

	engine, err := NewEngine(quotes, reconciler, controller, cycleLog, reporter, clk, EngineConfig{
		VenueAName:    "gmocoin",
		VenueBName:    "bitbank",
		Symbol:        "BTC_JPY",
		CycleInterval: time.Second,
		MaxHold:       12 * time.Hour,
	}, log)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	return &engineHarness{
		engine:   engine,
		quotes:   quotes,
		cycleLog: cycleLog,
		reporter: reporter,
		venueA:   venueA,
		venueB:   venueB,
		clk:      clk,
	}
}

func TestEngine_FullRoundTrip(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()

	// Cycle 1: the spread clears the threshold, the engine enters.
	h.engine.Cycle(ctx)
	if got := h.cycleLog.cycles[0].Action; got != domain.ActionEntry {
		t.Fatalf("cycle 1 action = %s, want %s", got, domain.ActionEntry)
	}
	if h.engine.State().Mode != domain.ModeOffensive {
		t.Fatal("fresh position should stay offensive")
	}

	// Cycle 2: prices converge enough that the unwind clears the profit
	// target. The engine submits closing orders.
	installBooks(h.venueA, h.venueB, "5001000", "5002000", "5002000", "5002500")
	h.quotes.spreads = pairQuotes("5001000", "5002000", "5002000", "5002500")
	h.engine.Cycle(ctx)
	if got := h.cycleLog.cycles[1].Action; got != domain.ActionExit {
		t.Fatalf("cycle 2 action = %s, want %s", got, domain.ActionExit)
	}
	if len(h.cycleLog.trades) != 0 {
		t.Fatal("trade must not be recorded before flat is confirmed")
	}

	// Cycle 3: both venues report flat, the round trip finalizes and the
	// state zeroes back to offensive.
	h.engine.Cycle(ctx)
	if len(h.cycleLog.trades) != 1 {
		t.Fatalf("trades recorded = %d, want 1", len(h.cycleLog.trades))
	}
	trade := h.cycleLog.trades[0]
	if trade.ExitReason != domain.ExitProfitTarget {
		t.Errorf("exit reason = %s, want %s", trade.ExitReason, domain.ExitProfitTarget)
	}
	if !trade.EntrySpread.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("entry spread = %s, want 3500", trade.EntrySpread)
	}
	if h.cycleLog.cycles[2].Trade == nil {
		t.Error("finalizing cycle should attach the trade to its snapshot")
	}

	state := h.engine.State()
	if state.Mode != domain.ModeOffensive || state.HasEntry {
		t.Errorf("state after flat = %+v, want zeroed offensive", state)
	}

	net, fees := h.engine.Totals()
	if !net.Equal(trade.NetPnL) {
		t.Errorf("total net = %s, want %s", net, trade.NetPnL)
	}
	if !fees.Equal(trade.FeeCost) {
		t.Errorf("total fees = %s, want %s", fees, trade.FeeCost)
	}
	if len(h.reporter.trades) != 1 {
		t.Errorf("reporter trades = %d, want 1", len(h.reporter.trades))
	}
}

func TestEngine_TimeoutClosesAgedPosition(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()

	h.engine.Cycle(ctx)
	if got := h.cycleLog.cycles[0].Action; got != domain.ActionEntry {
		t.Fatalf("cycle 1 action = %s, want %s", got, domain.ActionEntry)
	}

	// Hold past the limit with the unwind stuck between the thresholds.
	h.clk.Advance(13 * time.Hour)
	installBooks(h.venueA, h.venueB, "4999000", "5000000", "5001500", "5002000")
	h.quotes.spreads = pairQuotes("4999000", "5000000", "5001500", "5002000")

	h.engine.Cycle(ctx)
	if h.engine.State().Mode != domain.ModeDefensive {
		t.Fatal("aged position should flip the mode to defensive")
	}
	if got := h.cycleLog.cycles[1].Action; got != domain.ActionExit {
		t.Fatalf("cycle 2 action = %s, want %s", got, domain.ActionExit)
	}

	h.engine.Cycle(ctx)
	if len(h.cycleLog.trades) != 1 {
		t.Fatalf("trades recorded = %d, want 1", len(h.cycleLog.trades))
	}
	if got := h.cycleLog.trades[0].ExitReason; got != domain.ExitTimeout {
		t.Errorf("exit reason = %s, want %s", got, domain.ExitTimeout)
	}
	if h.engine.State().Mode != domain.ModeOffensive {
		t.Error("flat should reset the mode to offensive")
	}
}

func TestEngine_UnavailableQuotesSkipCycle(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()

	h.quotes.err = pricingdomain.ErrQuoteUnavailable
	h.engine.Cycle(ctx)

	if len(h.cycleLog.cycles) != 0 {
		t.Errorf("cycles recorded = %d, want 0: unavailable quotes skip the cycle", len(h.cycleLog.cycles))
	}
	after := snapshotPositions(t, h.venueA, h.venueB)
	if !after.A.IsFlat() || !after.B.IsFlat() {
		t.Error("skipped cycle must not place orders")
	}
}

func TestEngine_CycleLogFailureDoesNotStopTheLoop(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()

	h.cycleLog.appendErr = errors.New("disk full")
	h.engine.Cycle(ctx)

	// The action still happened and the reporter still saw the cycle.
	after := snapshotPositions(t, h.venueA, h.venueB)
	if after.A.IsFlat() {
		t.Error("entry should proceed despite the log failure")
	}
	if len(h.reporter.cycles) != 1 {
		t.Errorf("reporter cycles = %d, want 1", len(h.reporter.cycles))
	}
}

func TestEngine_FrozenReconcilerBlocksEntries(t *testing.T) {
	h := newEngineHarness(t)
	ctx := context.Background()

	h.venueA.FailPositions(errors.New("gateway timeout"))
	for i := 0; i < 3; i++ {
		h.engine.Cycle(ctx)
	}

	// Venue A's reads are still faulted, so check the offset venue directly.
	posB, err := h.venueB.GetPosition(ctx, "btc_jpy")
	if err != nil {
		t.Fatalf("GetPosition B: %v", err)
	}
	if !posB.IsFlat() {
		t.Error("no entry may happen while position reads fail")
	}

	// A fresh read thaws the engine and the entry goes through.
	h.venueA.FailPositions(nil)
	h.engine.Cycle(ctx)
	after := snapshotPositions(t, h.venueA, h.venueB)
	if after.A.IsFlat() {
		t.Error("entry should resume after a fresh position read")
	}
}
