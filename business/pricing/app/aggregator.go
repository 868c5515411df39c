package app

import (
	"fmt"
	"time"

	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hirokim/crossarb/business/pricing/domain"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/logger"
)

const meterName = "crossarb.pricing"

// DefaultMaxQuoteAge bounds how old a streamed snapshot may be before the
// aggregator refuses it and falls back to REST.
const DefaultMaxQuoteAge = 3 * time.Second

type venueEntry struct {
	symbol string
	source BookSource
}

// Aggregator produces top-of-book quotes for registered venues. It reads
// the latest streamed snapshot from the BookCache and falls back to a
// direct fetch when the snapshot is missing or older than maxAge. A quote
// is never served silently stale: if neither path yields a fresh book the
// caller gets domain.ErrQuoteUnavailable and must skip the cycle.
type Aggregator struct {
	cache  *BookCache
	clock  clock.Clock
	maxAge time.Duration
	venues map[string]venueEntry
	logger logger.LoggerInterface

	fallbacks metric.Int64Counter
}

// NewAggregator creates an aggregator over the given cache.
func NewAggregator(cache *BookCache, clk clock.Clock, maxAge time.Duration, log logger.LoggerInterface) (*Aggregator, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxQuoteAge
	}

	meter := otel.Meter(meterName)
	fallbacks, err := meter.Int64Counter(
		"pricing_quote_fallbacks_total",
		metric.WithDescription("Quotes served via REST fallback instead of the stream"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init aggregator metrics: %w", err)
	}

	return &Aggregator{
		cache:     cache,
		clock:     clk,
		maxAge:    maxAge,
		venues:    make(map[string]venueEntry),
		logger:    log,
		fallbacks: fallbacks,
	}, nil
}

// RegisterVenue attaches a venue's symbol and fallback source.
func (ag *Aggregator) RegisterVenue(venue, symbol string, source BookSource) {
	ag.venues[venue] = venueEntry{symbol: symbol, source: source}
}

// Quote returns the current top of book for a registered venue.
func (ag *Aggregator) Quote(ctx context.Context, venue string) (domain.Quote, error) {
	entry, ok := ag.venues[venue]
	if !ok {
		return domain.Quote{}, fmt.Errorf("venue %q not registered", venue)
	}

	now := ag.clock.Now()
	if book, ok := ag.cache.Latest(venue); ok && book.Age(now) <= ag.maxAge {
		return domain.QuoteFromBook(book)
	}

	// Stream is cold or stale; fetch directly and refresh the cache.
	ag.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue)))
	book, err := entry.source.GetOrderBook(ctx, entry.symbol)
	if err != nil {
		ag.logger.Warn(ctx, "quote fallback fetch failed", "venue", venue, "error", err)
		return domain.Quote{}, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, venue, err)
	}
	ag.cache.Publish(book)
	return domain.QuoteFromBook(book)
}

// Spreads fetches both venues' quotes and computes the directional
// spreads. venueA and venueB must both be registered.
func (ag *Aggregator) Spreads(ctx context.Context, venueA, venueB string) (domain.SpreadPair, error) {
	quoteA, err := ag.Quote(ctx, venueA)
	if err != nil {
		return domain.SpreadPair{}, err
	}
	quoteB, err := ag.Quote(ctx, venueB)
	if err != nil {
		return domain.SpreadPair{}, err
	}
	return domain.ComputeSpreads(quoteA, quoteB), nil
}
