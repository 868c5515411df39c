// Package pricing implements the pricing bounded context for quotes and spreads.
package pricing

import (
	"context"
	"time"

	"github.com/hirokim/crossarb/business/pricing/app"
	pricingDI "github.com/hirokim/crossarb/business/pricing/di"
	venueDI "github.com/hirokim/crossarb/business/venue/di"
	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/business/venue/infra/bitbank"
	"github.com/hirokim/crossarb/business/venue/infra/gmocoin"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/config"
	"github.com/hirokim/crossarb/internal/di"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/monolith"
)

// feed is what every venue order book stream gives us.
type feed interface {
	Connect(ctx context.Context) error
	Close() error
}

// Module implements the pricing bounded context. It owns the order book
// streams: the venue feeds publish into the book cache and the aggregator
// serves quotes out of it.
type Module struct {
	feeds []feed
}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.BookCache, func(sr di.ServiceRegistry) *app.BookCache {
		return app.NewBookCache()
	})

	di.RegisterToken(c, pricingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)
		cache := pricingDI.GetBookCache(sr)

		ag, err := app.NewAggregator(cache, clk, app.DefaultMaxQuoteAge, log)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		ag.RegisterVenue(cfg.VenueA.Name, cfg.VenueA.Symbol, venueDI.GetGatewayA(sr))
		ag.RegisterVenue(cfg.VenueB.Name, cfg.VenueB.Symbol, venueDI.GetGatewayB(sr))
		return ag
	})

	return nil
}

// Startup connects the order book feeds. A feed that cannot connect is
// retried in the background; until then the aggregator's REST fallback
// keeps quotes flowing.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	cache := pricingDI.GetBookCache(mono.Services())

	sink := func(book *venuedomain.OrderBook) {
		cache.Publish(book)
	}

	for _, vc := range []config.VenueConfig{cfg.VenueA, cfg.VenueB} {
		f, err := buildFeed(vc, sink, log)
		if err != nil {
			return err
		}
		if f == nil {
			continue // paper venues have no stream
		}
		m.feeds = append(m.feeds, f)
		m.connectFeed(ctx, f, vc.Name, log)
	}

	log.Info(ctx, "pricing module started", "feeds", len(m.feeds))
	return nil
}

// Close shuts down all feeds.
func (m *Module) Close() error {
	for _, f := range m.feeds {
		f.Close()
	}
	return nil
}

func (m *Module) connectFeed(ctx context.Context, f feed, venue string, log logger.LoggerInterface) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := f.Connect(connectCtx)
	if err == nil {
		return
	}
	log.Warn(ctx, "feed connection failed, will retry in background", "venue", venue, "error", err)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				if err := f.Connect(ctx); err != nil {
					log.Warn(ctx, "feed retry failed", "venue", venue, "error", err)
				} else {
					log.Info(ctx, "feed connected", "venue", venue)
					return
				}
			}
		}
	}()
}

func buildFeed(vc config.VenueConfig, sink func(*venuedomain.OrderBook), log logger.LoggerInterface) (feed, error) {
	switch vc.Driver {
	case "gmocoin":
		return gmocoin.NewFeed(gmocoin.FeedConfig{
			URL:    vc.WebSocketURL,
			Symbol: vc.Symbol,
		}, gmocoin.BookSink(sink), log)
	case "bitbank":
		return bitbank.NewFeed(bitbank.FeedConfig{
			URL:    vc.WebSocketURL,
			Symbol: vc.Symbol,
		}, bitbank.BookSink(sink), log)
	default:
		return nil, nil
	}
}
