// Package app contains the arbitrage engine: the position reconciler, the
// execution controller and the cycle loop that drives them.
package app

import (
	"context"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
)

// VenueGateway is what the engine needs from one venue: authoritative
// reads plus order placement and cancellation. The venue context's gateway
// satisfies it.
type VenueGateway interface {
	Name() string
	GetPosition(ctx context.Context, symbol string) (venuedomain.Position, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]venuedomain.Order, error)
	PlaceOrder(ctx context.Context, order venuedomain.Order) (venuedomain.Order, error)
	CancelOrder(ctx context.Context, order venuedomain.Order) error
}

// QuoteSource provides both directional spreads for a venue pair. The
// pricing aggregator satisfies it.
type QuoteSource interface {
	Spreads(ctx context.Context, venueA, venueB string) (pricingdomain.SpreadPair, error)
}

// CycleLog persists the append-only per-cycle records and closed trades.
type CycleLog interface {
	AppendCycle(ctx context.Context, snap domain.CycleSnapshot) error
	RecordTrade(ctx context.Context, trade domain.Trade) error
	Close() error
}

// Reporter receives live engine updates for display.
type Reporter interface {
	Start(ctx context.Context) error
	ReportCycle(snap domain.CycleSnapshot)
	ReportTrade(trade domain.Trade)
	Stop() error
}
