package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirokim/crossarb/business/pricing/domain"
	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/logger"
)

type fakeSource struct {
	book  *venuedomain.OrderBook
	err   error
	calls int
}

func (f *fakeSource) GetOrderBook(ctx context.Context, symbol string) (*venuedomain.OrderBook, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

func makeBook(venue string, ts time.Time) *venuedomain.OrderBook {
	return &venuedomain.OrderBook{
		Venue:     venue,
		Symbol:    "BTC_JPY",
		Bids:      []venuedomain.BookLevel{{Price: decimal.RequireFromString("4999000"), Size: decimal.RequireFromString("0.5")}},
		Asks:      []venuedomain.BookLevel{{Price: decimal.RequireFromString("5000000"), Size: decimal.RequireFromString("0.5")}},
		Timestamp: ts,
	}
}

func newTestAggregator(t *testing.T, clk clock.Clock) (*Aggregator, *BookCache) {
	t.Helper()
	cache := NewBookCache()
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	ag, err := NewAggregator(cache, clk, 3*time.Second, log)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return ag, cache
}

func TestAggregator_FreshSnapshotServedFromCache(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	ag, cache := newTestAggregator(t, clk)

	source := &fakeSource{}
	ag.RegisterVenue("gmocoin", "BTC_JPY", source)
	cache.Publish(makeBook("gmocoin", clk.Now().Add(-time.Second)))

	q, err := ag.Quote(context.Background(), "gmocoin")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Bid.Equal(decimal.RequireFromString("4999000")) {
		t.Errorf("Bid = %s, want 4999000", q.Bid)
	}
	if source.calls != 0 {
		t.Errorf("fresh snapshot must not hit the fallback source, got %d calls", source.calls)
	}
}

func TestAggregator_StaleSnapshotFallsBack(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	ag, cache := newTestAggregator(t, clk)

	source := &fakeSource{book: makeBook("gmocoin", clk.Now())}
	ag.RegisterVenue("gmocoin", "BTC_JPY", source)
	cache.Publish(makeBook("gmocoin", clk.Now().Add(-time.Minute)))

	if _, err := ag.Quote(context.Background(), "gmocoin"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if source.calls != 1 {
		t.Errorf("stale snapshot must trigger fallback, got %d calls", source.calls)
	}

	// The fallback result refreshes the cache.
	book, ok := cache.Latest("gmocoin")
	if !ok || !book.Timestamp.Equal(clk.Now()) {
		t.Error("fallback book was not published to the cache")
	}
}

func TestAggregator_UnavailableWhenBothPathsFail(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	ag, _ := newTestAggregator(t, clk)

	source := &fakeSource{err: errors.New("venue down")}
	ag.RegisterVenue("bitbank", "btc_jpy", source)

	_, err := ag.Quote(context.Background(), "bitbank")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestAggregator_Spreads(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	ag, cache := newTestAggregator(t, clk)

	ag.RegisterVenue("gmocoin", "BTC_JPY", &fakeSource{})
	ag.RegisterVenue("bitbank", "btc_jpy", &fakeSource{})

	bookA := makeBook("gmocoin", clk.Now())
	bookB := &venuedomain.OrderBook{
		Venue:     "bitbank",
		Symbol:    "btc_jpy",
		Bids:      []venuedomain.BookLevel{{Price: decimal.RequireFromString("5003500"), Size: decimal.RequireFromString("0.5")}},
		Asks:      []venuedomain.BookLevel{{Price: decimal.RequireFromString("5004500"), Size: decimal.RequireFromString("0.5")}},
		Timestamp: clk.Now(),
	}
	cache.Publish(bookA)
	cache.Publish(bookB)

	spreads, err := ag.Spreads(context.Background(), "gmocoin", "bitbank")
	if err != nil {
		t.Fatalf("Spreads: %v", err)
	}
	if !spreads.AToB.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("AToB = %s, want 3500", spreads.AToB)
	}
	if !spreads.BToA.Equal(decimal.RequireFromString("-5500")) {
		t.Errorf("BToA = %s, want -5500", spreads.BToA)
	}
}

func TestBookCache_LatestWins(t *testing.T) {
	cache := NewBookCache()

	old := makeBook("gmocoin", time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	newer := makeBook("gmocoin", time.Date(2026, 1, 15, 9, 0, 1, 0, time.UTC))
	cache.Publish(old)
	cache.Publish(newer)

	got, ok := cache.Latest("gmocoin")
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if !got.Timestamp.Equal(newer.Timestamp) {
		t.Error("cache must keep only the newest snapshot")
	}

	if _, ok := cache.Latest("bitbank"); ok {
		t.Error("unpublished venue must report no snapshot")
	}
}
