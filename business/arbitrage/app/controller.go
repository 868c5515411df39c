package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
	"github.com/hirokim/crossarb/internal/apm"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/instrument"
	"github.com/hirokim/crossarb/internal/logger"
)

// ControllerConfig holds the execution parameters for the decision ladder.
type ControllerConfig struct {
	SymbolA string
	SymbolB string

	EntryThreshold decimal.Decimal
	Exits          domain.ExitThresholds
	FeeRate        decimal.Decimal
	TargetQty      decimal.Decimal
	Preferred      pricingdomain.Direction

	// Fill confirmation polling between the two entry legs.
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
}

// Controller sequences order placement and cancellation across both venues.
// Each cycle runs the ladder: stale-order sweep, entry, rebalance, exit.
// The first step that acts ends the cycle, so the engine takes at most one
// position-changing action per cycle.
//
// The controller is the only component that issues orders; it sizes them
// exclusively from fresh reconciled positions.
type Controller struct {
	venueA VenueGateway
	venueB VenueGateway
	inst   *instrument.Instrument
	clk    clock.Clock
	config ControllerConfig
	log    logger.LoggerInterface
	tracer apm.Tracer

	actions metric.Int64Counter
}

// NewController creates a Controller for one venue pair.
func NewController(venueA, venueB VenueGateway, inst *instrument.Instrument, clk clock.Clock, cfg ControllerConfig, log logger.LoggerInterface) (*Controller, error) {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = time.Second
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = 200 * time.Millisecond
	}
	c := &Controller{
		venueA: venueA,
		venueB: venueB,
		inst:   inst,
		clk:    clk,
		config: cfg,
		log:    log,
		tracer: apm.NewTracer("arbitrage.controller"),
	}

	var err error
	c.actions, err = otel.Meter("crossarb.arbitrage").Int64Counter(
		"controller_actions_total",
		metric.WithDescription("Ladder actions taken, by kind"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init controller metrics: %w", err)
	}
	return c, nil
}

// Act runs one cycle of the decision ladder. It returns the action taken
// and, on an exit, the candidate Trade to be finalized once both venues
// confirm flat. A frozen cycle still sweeps but places nothing.
func (c *Controller) Act(ctx context.Context, spreads pricingdomain.SpreadPair, pos Positions, state *domain.EngineState, frozen bool) (domain.Action, *domain.Trade, error) {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "arbitrage.controller.act")
	defer span.End()

	swept, err := c.sweep(ctx)
	if err != nil {
		span.NoticeError(err)
		return domain.ActionNone, nil, err
	}
	if swept {
		c.count(ctx, domain.ActionSweep)
		return domain.ActionSweep, nil, nil
	}

	// Without a trustworthy position on both venues no order can be sized.
	if frozen || pos.AnyStale() {
		return domain.ActionNone, nil, nil
	}

	grossA := pos.A.Gross()
	exposureB := pos.B.Net().Abs()

	if state.Mode == domain.ModeOffensive &&
		exposureB.LessThan(c.config.TargetQty) &&
		grossA.LessThanOrEqual(exposureB) {
		if dir, ok := spreads.EntrySignal(c.config.EntryThreshold, c.config.Preferred); ok {
			acted, err := c.enter(ctx, spreads, dir, exposureB, state)
			if acted || err != nil {
				if err != nil {
					span.NoticeError(err)
				}
				c.count(ctx, domain.ActionEntry)
				return domain.ActionEntry, nil, err
			}
		}
	}

	lagA := exposureB.GreaterThanOrEqual(c.config.TargetQty) && grossA.LessThan(exposureB)
	lagB := grossA.GreaterThan(exposureB)
	if state.Mode == domain.ModeOffensive && (lagA || lagB) {
		acted, err := c.rebalance(ctx, spreads, pos, state, grossA, exposureB)
		if acted || err != nil {
			if err != nil {
				span.NoticeError(err)
			}
			c.count(ctx, domain.ActionRebalance)
			return domain.ActionRebalance, nil, err
		}
	}

	if grossA.IsPositive() || !pos.B.IsFlat() {
		trade, acted, err := c.exit(ctx, spreads, pos, state)
		if acted || err != nil {
			if err != nil {
				span.NoticeError(err)
			}
			c.count(ctx, domain.ActionExit)
			return domain.ActionExit, trade, err
		}
	}

	return domain.ActionNone, nil, nil
}

// sweep cancels every open order on both venues. Orders that resolved
// before the cancel landed are tolerated. Returns true when anything was
// actually cancelled.
func (c *Controller) sweep(ctx context.Context) (bool, error) {
	swept := false
	for _, v := range []VenueGateway{c.venueA, c.venueB} {
		symbol := c.config.SymbolA
		if v == c.venueB {
			symbol = c.config.SymbolB
		}
		open, err := v.ListOpenOrders(ctx, symbol)
		if err != nil {
			return swept, fmt.Errorf("list open orders on %s: %w", v.Name(), err)
		}
		for _, o := range open {
			if err := v.CancelOrder(ctx, o); err != nil {
				return swept, fmt.Errorf("cancel order on %s: %w", v.Name(), err)
			}
			swept = true
			c.log.Info(ctx, "cancelled stale order",
				"venue", v.Name(),
				"order_id", o.VenueOrderID,
				"side", o.Side,
				"remaining", o.Remaining())
		}
	}
	return swept, nil
}

// enter opens both legs sequentially: the venue A leg first, then the
// venue B leg sized to A's confirmed fill. The entry spread and time are
// recorded on the engine state. Returns false when the sized quantity is
// too small to place.
func (c *Controller) enter(ctx context.Context, spreads pricingdomain.SpreadPair, dir pricingdomain.Direction, exposureB decimal.Decimal, state *domain.EngineState) (bool, error) {
	qa, qb := spreads.QuoteA, spreads.QuoteB

	var sideA, sideB venuedomain.Side
	var priceA, priceB, avail decimal.Decimal
	switch dir {
	case pricingdomain.DirectionAToB:
		// Buy A at its ask, sell B at its bid.
		sideA, priceA = venuedomain.SideBuy, qa.Ask
		sideB, priceB = venuedomain.SideSell, qb.Bid
		avail = decimal.Min(qa.AskSize, qb.BidSize)
	default:
		// Buy B at its ask, sell A at its bid.
		sideA, priceA = venuedomain.SideSell, qa.Bid
		sideB, priceB = venuedomain.SideBuy, qb.Ask
		avail = decimal.Min(qa.BidSize, qb.AskSize)
	}

	qty := c.inst.RoundQty(decimal.Min(avail, c.config.TargetQty.Sub(exposureB)))
	if !c.inst.Placeable(qty) {
		return false, nil
	}

	legA := venuedomain.NewOrder(c.venueA.Name(), c.config.SymbolA, sideA, c.inst.RoundPrice(priceA), qty)
	placedA, err := c.venueA.PlaceOrder(ctx, legA)
	if err != nil {
		// Rejected or ambiguous. Either way nothing more is placed this
		// cycle; reconciliation sees whatever actually happened.
		return true, fmt.Errorf("entry leg on %s: %w", c.venueA.Name(), err)
	}

	filled := c.confirmFill(ctx, c.venueA, placedA)
	qtyB := c.inst.RoundQty(filled)
	if c.inst.Placeable(qtyB) {
		legB := venuedomain.NewOrder(c.venueB.Name(), c.config.SymbolB, sideB, c.inst.RoundPrice(priceB), qtyB)
		if _, err := c.venueB.PlaceOrder(ctx, legB); err != nil {
			// Leg A is on. Record the entry so the hold clock runs while
			// the next cycles resolve the missing offset.
			state.RecordEntry(dir, spreads.For(dir), c.clk.Now())
			return true, fmt.Errorf("entry leg on %s: %w", c.venueB.Name(), err)
		}
	} else {
		c.log.Warn(ctx, "first leg unconfirmed within poll window, offsetting leg deferred",
			"venue", c.venueA.Name(),
			"order_id", placedA.VenueOrderID)
	}

	state.RecordEntry(dir, spreads.For(dir), c.clk.Now())
	c.log.Info(ctx, "entered position",
		"direction", dir,
		"qty", qty,
		"spread", spreads.For(dir),
		"price_a", priceA,
		"price_b", priceB)
	return true, nil
}

// rebalance closes the size gap between the venues with a single order on
// whichever side lags, without re-running entry logic. Partial fills from an
// earlier entry leave A behind B's exposure; an under-filled or rejected
// offsetting leg leaves B behind A's gross.
func (c *Controller) rebalance(ctx context.Context, spreads pricingdomain.SpreadPair, pos Positions, state *domain.EngineState, grossA, exposureB decimal.Decimal) (bool, error) {
	var (
		venue VenueGateway
		order venuedomain.Order
	)
	if grossA.LessThan(exposureB) {
		diff := c.inst.RoundQty(exposureB.Sub(grossA))
		if !c.inst.Placeable(diff) {
			return false, nil
		}
		venue = c.venueA
		if pos.B.Net().IsNegative() {
			// B is short, A hedges long.
			order = venuedomain.NewOrder(c.venueA.Name(), c.config.SymbolA, venuedomain.SideBuy,
				c.inst.RoundPrice(spreads.QuoteA.Ask), diff)
		} else {
			order = venuedomain.NewOrder(c.venueA.Name(), c.config.SymbolA, venuedomain.SideSell,
				c.inst.RoundPrice(spreads.QuoteA.Bid), diff)
		}
	} else {
		diff := c.inst.RoundQty(grossA.Sub(exposureB))
		if !c.inst.Placeable(diff) {
			return false, nil
		}
		venue = c.venueB
		if c.heldDirection(pos, state) == pricingdomain.DirectionAToB {
			// A is long, so B's hedge is short: sell B at its bid.
			order = venuedomain.NewOrder(c.venueB.Name(), c.config.SymbolB, venuedomain.SideSell,
				c.inst.RoundPrice(spreads.QuoteB.Bid), diff)
		} else {
			order = venuedomain.NewOrder(c.venueB.Name(), c.config.SymbolB, venuedomain.SideBuy,
				c.inst.RoundPrice(spreads.QuoteB.Ask), diff)
		}
	}

	if _, err := venue.PlaceOrder(ctx, order); err != nil {
		return true, fmt.Errorf("rebalance order on %s: %w", venue.Name(), err)
	}
	c.log.Info(ctx, "rebalanced venue exposure",
		"venue", venue.Name(),
		"side", order.Side,
		"qty", order.Qty)
	return true, nil
}

// exit evaluates the unwind P&L and, when a threshold is crossed (or
// ModeDefensive forces closure), submits closing orders on both venues
// for their full held sizes. The returned Trade is a candidate: it is
// finalized only once both venues confirm flat.
func (c *Controller) exit(ctx context.Context, spreads pricingdomain.SpreadPair, pos Positions, state *domain.EngineState) (*domain.Trade, bool, error) {
	dir := c.heldDirection(pos, state)
	if dir == "" {
		return nil, false, nil
	}

	unwind := spreads.For(dir.Opposite())
	net := domain.NetPnL(state.EntrySpread, unwind, c.config.FeeRate)
	reason, ok := c.config.Exits.Decide(net, state.Mode)
	if !ok {
		return nil, false, nil
	}

	qa, qb := spreads.QuoteA, spreads.QuoteB

	var closeA, closeB venuedomain.Order
	var qtyA, qtyB decimal.Decimal
	if dir == pricingdomain.DirectionAToB {
		// A is long, B is short: sell A at its bid, buy B back at its ask.
		qtyA = c.inst.RoundQty(pos.A.Long)
		qtyB = c.inst.RoundQty(pos.B.Net().Abs())
		closeA = venuedomain.NewOrder(c.venueA.Name(), c.config.SymbolA, venuedomain.SideSell, c.inst.RoundPrice(qa.Bid), qtyA)
		closeB = venuedomain.NewOrder(c.venueB.Name(), c.config.SymbolB, venuedomain.SideBuy, c.inst.RoundPrice(qb.Ask), qtyB)
	} else {
		// A is short, B is long: buy A back at its ask, sell B at its bid.
		qtyA = c.inst.RoundQty(pos.A.Short)
		qtyB = c.inst.RoundQty(pos.B.Net().Abs())
		closeA = venuedomain.NewOrder(c.venueA.Name(), c.config.SymbolA, venuedomain.SideBuy, c.inst.RoundPrice(qa.Ask), qtyA)
		closeB = venuedomain.NewOrder(c.venueB.Name(), c.config.SymbolB, venuedomain.SideSell, c.inst.RoundPrice(qb.Bid), qtyB)
	}

	if c.inst.Placeable(qtyA) {
		if _, err := c.venueA.PlaceOrder(ctx, closeA); err != nil {
			return nil, true, fmt.Errorf("closing leg on %s: %w", c.venueA.Name(), err)
		}
	}
	if c.inst.Placeable(qtyB) {
		if _, err := c.venueB.PlaceOrder(ctx, closeB); err != nil {
			return nil, true, fmt.Errorf("closing leg on %s: %w", c.venueB.Name(), err)
		}
	}

	trade := domain.NewTrade(c.inst.Symbol(), *state, unwind, decimal.Max(qtyA, qtyB), c.config.FeeRate, reason, c.clk.Now())
	c.log.Info(ctx, "submitted closing orders",
		"direction", dir,
		"reason", reason,
		"net_pnl", net,
		"qty_a", qtyA,
		"qty_b", qtyB)
	return &trade, true, nil
}

// heldDirection infers which way the book is positioned, preferring the
// venue A side and falling back to the venue B sign, then the recorded
// annotation.
func (c *Controller) heldDirection(pos Positions, state *domain.EngineState) pricingdomain.Direction {
	switch {
	case pos.A.Long.IsPositive():
		return pricingdomain.DirectionAToB
	case pos.A.Short.IsPositive():
		return pricingdomain.DirectionBToA
	case pos.B.Net().IsNegative():
		return pricingdomain.DirectionAToB
	case pos.B.Net().IsPositive():
		return pricingdomain.DirectionBToA
	}
	return state.Direction
}

// confirmFill polls venue A's open orders until the placed order is gone
// (fully filled) or the poll window elapses, returning the best known
// filled quantity. An incomplete poll is not an error; the next cycle's
// sweep and reconciliation settle whatever remains.
func (c *Controller) confirmFill(ctx context.Context, v VenueGateway, placed venuedomain.Order) decimal.Decimal {
	filled := placed.FilledQty
	if placed.Status == venuedomain.StatusFilled {
		return placed.Qty
	}

	done, err := clock.Poll(ctx, c.clk, c.config.ConfirmTimeout, c.config.ConfirmInterval, func() (bool, error) {
		open, err := v.ListOpenOrders(ctx, placed.Symbol)
		if err != nil {
			return false, err
		}
		for _, o := range open {
			if o.VenueOrderID == placed.VenueOrderID {
				filled = o.FilledQty
				return false, nil
			}
		}
		filled = placed.Qty
		return true, nil
	})
	if err != nil || !done {
		c.log.Debug(ctx, "fill confirmation incomplete",
			"venue", v.Name(),
			"order_id", placed.VenueOrderID,
			"filled", filled,
			"error", err)
	}
	return filled
}

func (c *Controller) count(ctx context.Context, action domain.Action) {
	c.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))
}
