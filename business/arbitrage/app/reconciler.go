package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/apm"
	"github.com/hirokim/crossarb/internal/logger"
)

// maxConsecutiveStale is how many position reads in a row may fail on one
// venue before the engine freezes.
const maxConsecutiveStale = 3

// Positions is one cycle's authoritative view of both venues.
type Positions struct {
	A venuedomain.Position
	B venuedomain.Position
}

// BothFlat reports whether both venues hold nothing. Stale reads never
// count as flat: a carried-over zero is not a report of zero.
func (p Positions) BothFlat() bool {
	return !p.A.Stale && !p.B.Stale && p.A.IsFlat() && p.B.IsFlat()
}

// AnyStale reports whether either side is a carried-over read.
func (p Positions) AnyStale() bool {
	return p.A.Stale || p.B.Stale
}

// Reconciler polls both venues for their authoritative positions every
// cycle. On a fetch failure the previous read is carried forward marked
// stale. Three consecutive stale reads on the same venue freeze the
// engine: no order may be sized until a fresh read succeeds, because the
// true exposure is unknown.
type Reconciler struct {
	venueA  VenueGateway
	venueB  VenueGateway
	symbolA string
	symbolB string
	log     logger.LoggerInterface
	tracer  apm.Tracer

	last   Positions
	staleA int
	staleB int

	staleReads metric.Int64Counter
	freezes    metric.Int64Counter
}

// NewReconciler creates a Reconciler with no position history.
func NewReconciler(venueA, venueB VenueGateway, symbolA, symbolB string, log logger.LoggerInterface) (*Reconciler, error) {
	r := &Reconciler{
		venueA:  venueA,
		venueB:  venueB,
		symbolA: symbolA,
		symbolB: symbolB,
		log:     log,
		tracer:  apm.NewTracer("arbitrage.reconciler"),
	}
	r.last.A = venuedomain.Position{Venue: venueA.Name(), Symbol: symbolA}
	r.last.B = venuedomain.Position{Venue: venueB.Name(), Symbol: symbolB}

	meter := otel.Meter("crossarb.arbitrage")
	var err error
	r.staleReads, err = meter.Int64Counter(
		"reconciler_stale_reads_total",
		metric.WithDescription("Position reads that failed and carried the previous value forward"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init reconciler metrics: %w", err)
	}
	r.freezes, err = meter.Int64Counter(
		"reconciler_freezes_total",
		metric.WithDescription("Times a venue crossed the consecutive stale read limit"),
		metric.WithUnit("{freeze}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init reconciler metrics: %w", err)
	}
	return r, nil
}

// Snapshot reads both venues and returns the cycle's position view.
func (r *Reconciler) Snapshot(ctx context.Context) Positions {
	ctx, span := r.tracer.StartSpanFromContext(ctx, "arbitrage.reconciler.snapshot")
	defer span.End()

	r.last.A = r.read(ctx, r.venueA, r.symbolA, &r.staleA, r.last.A)
	r.last.B = r.read(ctx, r.venueB, r.symbolB, &r.staleB, r.last.B)

	span.SetAttributes(
		attribute.Bool("stale_a", r.last.A.Stale),
		attribute.Bool("stale_b", r.last.B.Stale),
	)
	return r.last
}

func (r *Reconciler) read(ctx context.Context, v VenueGateway, symbol string, staleCount *int, prev venuedomain.Position) venuedomain.Position {
	pos, err := v.GetPosition(ctx, symbol)
	if err != nil {
		*staleCount++
		r.staleReads.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", v.Name())))
		r.log.Warn(ctx, "position read failed, carrying last known value",
			"venue", v.Name(),
			"consecutive", *staleCount,
			"error", err)
		if *staleCount == maxConsecutiveStale {
			r.freezes.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", v.Name())))
			r.log.Error(ctx, "venue position unknown, freezing order placement",
				"venue", v.Name())
		}
		return prev.MarkedStale()
	}
	*staleCount = 0
	return pos
}

// Frozen reports whether either venue has failed maxConsecutiveStale
// position reads in a row. While frozen, only cancellations are allowed.
func (r *Reconciler) Frozen() bool {
	return r.staleA >= maxConsecutiveStale || r.staleB >= maxConsecutiveStale
}
