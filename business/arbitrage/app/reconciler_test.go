package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/business/venue/infra/paper"
	"github.com/hirokim/crossarb/internal/logger"
)

func newTestReconciler(t *testing.T) (*Reconciler, *paper.Venue, *paper.Venue) {
	t.Helper()
	venueA := paper.New("gmocoin", "BTC_JPY")
	venueB := paper.New("bitbank", "btc_jpy")
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	r, err := NewReconciler(venueA, venueB, "BTC_JPY", "btc_jpy", log)
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}
	return r, venueA, venueB
}

func TestReconciler_FreshReads(t *testing.T) {
	r, venueA, _ := newTestReconciler(t)
	venueA.SetPosition(venuedomain.Position{
		Symbol: "BTC_JPY",
		Long:   decimal.RequireFromString("0.01"),
	})

	pos := r.Snapshot(context.Background())

	if pos.A.Stale || pos.B.Stale {
		t.Error("fresh reads should not be stale")
	}
	if !pos.A.Long.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Long = %s, want 0.01", pos.A.Long)
	}
	if pos.BothFlat() {
		t.Error("venue A holds exposure, not flat")
	}
	if r.Frozen() {
		t.Error("should not be frozen")
	}
}

func TestReconciler_FailureCarriesLastValueStale(t *testing.T) {
	r, venueA, _ := newTestReconciler(t)
	venueA.SetPosition(venuedomain.Position{
		Symbol: "BTC_JPY",
		Long:   decimal.RequireFromString("0.01"),
	})

	ctx := context.Background()
	r.Snapshot(ctx)

	venueA.FailPositions(errors.New("gateway timeout"))
	pos := r.Snapshot(ctx)

	if !pos.A.Stale {
		t.Error("carried-over read should be stale")
	}
	if !pos.A.Long.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("stale read should keep last size, got %s", pos.A.Long)
	}
	if pos.B.Stale {
		t.Error("venue B read succeeded, should be fresh")
	}
	if pos.BothFlat() {
		t.Error("a stale zero is not a report of flat")
	}
}

func TestReconciler_FreezesAfterThreeConsecutiveStale(t *testing.T) {
	r, venueA, _ := newTestReconciler(t)
	ctx := context.Background()

	venueA.FailPositions(errors.New("gateway timeout"))
	for i := 0; i < 2; i++ {
		r.Snapshot(ctx)
		if r.Frozen() {
			t.Fatalf("frozen after %d stale reads, want 3", i+1)
		}
	}
	r.Snapshot(ctx)
	if !r.Frozen() {
		t.Fatal("should freeze after three consecutive stale reads")
	}

	// A fresh read thaws the engine.
	venueA.FailPositions(nil)
	r.Snapshot(ctx)
	if r.Frozen() {
		t.Error("fresh read should clear the freeze")
	}
}

func TestReconciler_InterruptedFailuresDoNotFreeze(t *testing.T) {
	r, venueA, _ := newTestReconciler(t)
	ctx := context.Background()

	venueA.FailPositions(errors.New("gateway timeout"))
	r.Snapshot(ctx)
	r.Snapshot(ctx)

	venueA.FailPositions(nil)
	r.Snapshot(ctx)

	venueA.FailPositions(errors.New("gateway timeout"))
	r.Snapshot(ctx)
	r.Snapshot(ctx)

	if r.Frozen() {
		t.Error("non-consecutive failures should not freeze")
	}
}
