package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	"github.com/hirokim/crossarb/internal/apm"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/logger"
)

// EngineConfig holds the loop parameters.
type EngineConfig struct {
	VenueAName    string
	VenueBName    string
	Symbol        string
	CycleInterval time.Duration
	MaxHold       time.Duration
}

type engineMetrics struct {
	cycles      metric.Int64Counter
	cycleErrors metric.Int64Counter
	trades      metric.Int64Counter
	netPnL      metric.Float64UpDownCounter
}

// Engine is the single logical control loop. One cycle runs to completion
// before the next begins; quote ingestion happens concurrently but only
// ever overwrites the latest-snapshot slot the aggregator reads from.
// Cycle shape: spreads, reconcile, mode transition, ladder, record.
//
// Ownership is strict: only the reconciler writes Position, only the mode
// transition writes EngineState, only the controller issues orders. That
// single-loop discipline is the entire concurrency story; there is nothing
// to lock.
type Engine struct {
	quotes     QuoteSource
	reconciler *Reconciler
	controller *Controller
	state      *domain.EngineState
	cycleLog   CycleLog
	reporter   Reporter
	clk        clock.Clock
	config     EngineConfig
	log        logger.LoggerInterface
	tracer     apm.Tracer
	metrics    engineMetrics

	// pending is an exit's candidate Trade, finalized on the first cycle
	// where both venues confirm flat.
	pending *domain.Trade

	totalNet  decimal.Decimal
	totalFees decimal.Decimal

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEngine assembles the control loop.
func NewEngine(quotes QuoteSource, reconciler *Reconciler, controller *Controller, cycleLog CycleLog, reporter Reporter, clk clock.Clock, cfg EngineConfig, log logger.LoggerInterface) (*Engine, error) {
	e := &Engine{
		quotes:     quotes,
		reconciler: reconciler,
		controller: controller,
		state:      domain.NewEngineState(),
		cycleLog:   cycleLog,
		reporter:   reporter,
		clk:        clk,
		config:     cfg,
		log:        log,
		tracer:     apm.NewTracer("arbitrage.engine"),
		stop:       make(chan struct{}),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter("crossarb.arbitrage")

	var err error
	e.metrics.cycles, err = meter.Int64Counter(
		"engine_cycles_total",
		metric.WithDescription("Engine cycles run"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return fmt.Errorf("init engine metrics: %w", err)
	}

	e.metrics.cycleErrors, err = meter.Int64Counter(
		"engine_cycle_errors_total",
		metric.WithDescription("Cycles that ended with an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("init engine metrics: %w", err)
	}

	e.metrics.trades, err = meter.Int64Counter(
		"engine_trades_total",
		metric.WithDescription("Round trips closed, by exit reason"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return fmt.Errorf("init engine metrics: %w", err)
	}

	e.metrics.netPnL, err = meter.Float64UpDownCounter(
		"engine_net_pnl_total",
		metric.WithDescription("Cumulative realized net P&L per unit"),
	)
	if err != nil {
		return fmt.Errorf("init engine metrics: %w", err)
	}
	return nil
}

// Start launches the cycle loop and the reporter.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.reporter.Start(ctx); err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}

	e.log.Info(ctx, "engine starting",
		"venue_a", e.config.VenueAName,
		"venue_b", e.config.VenueBName,
		"symbol", e.config.Symbol,
		"interval", e.config.CycleInterval)

	e.wg.Add(1)
	go e.run(ctx)
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			e.log.Info(ctx, "engine stopping", "reason", ctx.Err())
			return
		case <-e.stop:
			return
		case <-e.clk.After(e.config.CycleInterval):
		}
		e.Cycle(ctx)
	}
}

// Cycle runs exactly one engine cycle. Exported so a caller can drive the
// loop itself (tests, paper replays).
func (e *Engine) Cycle(ctx context.Context) {
	ctx, span := e.tracer.StartSpanFromContext(ctx, "arbitrage.engine.cycle")
	defer span.End()
	e.metrics.cycles.Add(ctx, 1)

	spreads, err := e.quotes.Spreads(ctx, e.config.VenueAName, e.config.VenueBName)
	if err != nil {
		// An unavailable quote is a skipped cycle, never a zero-spread
		// signal.
		e.metrics.cycleErrors.Add(ctx, 1)
		e.log.Warn(ctx, "quotes unavailable, skipping cycle", "error", err)
		return
	}

	pos := e.reconciler.Snapshot(ctx)
	flat := pos.BothFlat()

	var closed *domain.Trade
	if e.pending != nil && flat {
		closed = e.pending
		e.pending = nil
		e.finalize(ctx, *closed)
	}

	e.state.Advance(flat, e.clk.Now(), e.config.MaxHold)

	action, trade, err := e.controller.Act(ctx, spreads, pos, e.state, e.reconciler.Frozen())
	if err != nil {
		span.NoticeError(err)
		e.metrics.cycleErrors.Add(ctx, 1)
		e.log.Error(ctx, "cycle action failed",
			"action", action,
			"error", err)
	}
	if trade != nil {
		e.pending = trade
	}

	snap := domain.CycleSnapshot{
		Timestamp:  e.clk.Now(),
		Symbol:     e.config.Symbol,
		BidA:       spreads.QuoteA.Bid,
		AskA:       spreads.QuoteA.Ask,
		BidB:       spreads.QuoteB.Bid,
		AskB:       spreads.QuoteB.Ask,
		SpreadAToB: spreads.AToB,
		SpreadBToA: spreads.BToA,
		LongA:      pos.A.Long,
		ShortA:     pos.A.Short,
		NetB:       pos.B.Net(),
		Mode:       e.state.Mode,
		Action:     action,
		Trade:      closed,
	}
	if err := e.cycleLog.AppendCycle(ctx, snap); err != nil {
		e.log.Error(ctx, "cycle log write failed", "error", err)
	}
	e.reporter.ReportCycle(snap)

	span.SetAttributes(
		attribute.String("action", string(action)),
		attribute.String("mode", string(e.state.Mode)),
	)
}

func (e *Engine) finalize(ctx context.Context, trade domain.Trade) {
	e.totalNet = e.totalNet.Add(trade.NetPnL)
	e.totalFees = e.totalFees.Add(trade.FeeCost)

	e.metrics.trades.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", string(trade.ExitReason)),
	))
	pnl, _ := trade.NetPnL.Float64()
	e.metrics.netPnL.Add(ctx, pnl)

	if err := e.cycleLog.RecordTrade(ctx, trade); err != nil {
		e.log.Error(ctx, "trade record write failed", "trade_id", trade.ID, "error", err)
	}
	e.reporter.ReportTrade(trade)

	e.log.Info(ctx, "round trip closed",
		"trade_id", trade.ID,
		"direction", trade.Direction,
		"reason", trade.ExitReason,
		"net_pnl", trade.NetPnL,
		"total_net", e.totalNet,
		"total_fees", e.totalFees)
}

// Totals returns the cumulative realized net P&L and fee cost.
func (e *Engine) Totals() (net, fees decimal.Decimal) {
	return e.totalNet, e.totalFees
}

// State returns the engine's current mode state.
func (e *Engine) State() domain.EngineState {
	return *e.state
}

// Stop halts the loop and the reporter.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
	return e.reporter.Stop()
}
