package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
)

func newTestLog(t *testing.T) *SQLiteCycleLog {
	t.Helper()
	log, err := NewSQLiteCycleLog(filepath.Join(t.TempDir(), "cycles.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCycleLog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func testSnapshot(ts time.Time, action domain.Action) domain.CycleSnapshot {
	return domain.CycleSnapshot{
		Timestamp:  ts,
		Symbol:     "BTC_JPY",
		BidA:       decimal.RequireFromString("4999000"),
		AskA:       decimal.RequireFromString("5000000"),
		BidB:       decimal.RequireFromString("5003500"),
		AskB:       decimal.RequireFromString("5004000"),
		SpreadAToB: decimal.RequireFromString("3500"),
		SpreadBToA: decimal.RequireFromString("-5000"),
		LongA:      decimal.RequireFromString("0.01"),
		ShortA:     decimal.Zero,
		NetB:       decimal.RequireFromString("-0.01"),
		Mode:       domain.ModeOffensive,
		Action:     action,
	}
}

func TestSQLiteCycleLog_CycleRoundTrip(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		snap := testSnapshot(base.Add(time.Duration(i)*time.Second), domain.ActionNone)
		if err := log.AppendCycle(ctx, snap); err != nil {
			t.Fatalf("AppendCycle: %v", err)
		}
	}

	got, err := log.CyclesBetween(ctx, base, base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("CyclesBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cycles = %d, want 2 (range end is exclusive)", len(got))
	}

	first := got[0]
	if !first.SpreadAToB.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("SpreadAToB = %s, want 3500", first.SpreadAToB)
	}
	if !first.NetB.Equal(decimal.RequireFromString("-0.01")) {
		t.Errorf("NetB = %s, want -0.01", first.NetB)
	}
	if first.Mode != domain.ModeOffensive {
		t.Errorf("Mode = %s, want %s", first.Mode, domain.ModeOffensive)
	}
}

func TestSQLiteCycleLog_TradeRoundTrip(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	trade := domain.Trade{
		ID:          "t-1",
		Symbol:      "BTC_JPY",
		Direction:   pricingdomain.DirectionAToB,
		Qty:         decimal.RequireFromString("0.01"),
		EntryTime:   base,
		EntrySpread: decimal.RequireFromString("3500"),
		ExitTime:    base.Add(time.Hour),
		ExitSpread:  decimal.RequireFromString("-1500"),
		GrossPnL:    decimal.RequireFromString("2000"),
		FeeCost:     decimal.RequireFromString("1"),
		NetPnL:      decimal.RequireFromString("1999"),
		ExitReason:  domain.ExitProfitTarget,
	}
	if err := log.RecordTrade(ctx, trade); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	got, err := log.TradesBetween(ctx, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("TradesBetween: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("trades = %d, want 1", len(got))
	}
	if !got[0].NetPnL.Equal(trade.NetPnL) {
		t.Errorf("NetPnL = %s, want %s", got[0].NetPnL, trade.NetPnL)
	}
	if got[0].ExitReason != domain.ExitProfitTarget {
		t.Errorf("ExitReason = %s, want %s", got[0].ExitReason, domain.ExitProfitTarget)
	}
	if got[0].Direction != pricingdomain.DirectionAToB {
		t.Errorf("Direction = %s, want %s", got[0].Direction, pricingdomain.DirectionAToB)
	}
}

func TestSQLiteCycleLog_TradeAttachedToCycle(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	snap := testSnapshot(base, domain.ActionNone)
	snap.Trade = &domain.Trade{ID: "t-7"}
	if err := log.AppendCycle(ctx, snap); err != nil {
		t.Fatalf("AppendCycle: %v", err)
	}

	var row cycleRow
	if err := log.db.First(&row).Error; err != nil {
		t.Fatalf("read back cycle: %v", err)
	}
	if row.TradeID != "t-7" {
		t.Errorf("TradeID = %q, want t-7", row.TradeID)
	}
}
