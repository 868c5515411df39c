// Package arbitrage implements the arbitrage bounded context: position
// reconciliation, the decision ladder and the cycle loop.
package arbitrage

import (
	"context"

	"github.com/hirokim/crossarb/business/arbitrage/app"
	arbDI "github.com/hirokim/crossarb/business/arbitrage/di"
	"github.com/hirokim/crossarb/business/arbitrage/domain"
	"github.com/hirokim/crossarb/business/arbitrage/infra"
	pricingDI "github.com/hirokim/crossarb/business/pricing/di"
	pricingdomain "github.com/hirokim/crossarb/business/pricing/domain"
	venueDI "github.com/hirokim/crossarb/business/venue/di"
	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/config"
	"github.com/hirokim/crossarb/internal/di"
	"github.com/hirokim/crossarb/internal/instrument"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/monolith"
)

// Module implements the arbitrage bounded context. It owns the engine
// lifecycle: Startup launches the cycle loop, Close drains it.
type Module struct {
	engine *app.Engine
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbDI.CycleLog, func(sr di.ServiceRegistry) app.CycleLog {
		cfg := sr.Get("config").(*config.Config)
		cl, err := infra.NewSQLiteCycleLog(cfg.CycleLog.Path)
		if err != nil {
			panic("failed to open cycle log: " + err.Error())
		}
		return cl
	})

	di.RegisterToken(c, arbDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Engine.TUIMode {
			return infra.NewTUIReporter(cfg.VenueA.Name, cfg.VenueB.Name)
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, arbDI.Reconciler, func(sr di.ServiceRegistry) *app.Reconciler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		r, err := app.NewReconciler(
			venueDI.GetGatewayA(sr), venueDI.GetGatewayB(sr),
			cfg.VenueA.Symbol, cfg.VenueB.Symbol,
			log,
		)
		if err != nil {
			panic("failed to create reconciler: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, arbDI.Controller, func(sr di.ServiceRegistry) *app.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)
		instruments := sr.Get("instrumentRegistry").(*instrument.Registry)

		preferred := pricingdomain.DirectionBToA
		if cfg.Engine.PreferPrimary {
			preferred = pricingdomain.DirectionAToB
		}

		ctrl, err := app.NewController(
			venueDI.GetGatewayA(sr), venueDI.GetGatewayB(sr),
			instruments.MustGet(cfg.VenueA.Symbol),
			clk,
			app.ControllerConfig{
				SymbolA:        cfg.VenueA.Symbol,
				SymbolB:        cfg.VenueB.Symbol,
				EntryThreshold: cfg.Engine.EntryThresholdDecimal(),
				Exits: domain.ExitThresholds{
					ProfitTarget: cfg.Engine.ExitThresholdDecimal(),
					StopLoss:     cfg.Engine.StopLossThresholdDecimal(),
				},
				FeeRate:   cfg.Engine.FeeRateDecimal(),
				TargetQty: cfg.Engine.TargetQtyDecimal(),
				Preferred: preferred,
			},
			log,
		)
		if err != nil {
			panic("failed to create controller: " + err.Error())
		}
		return ctrl
	})

	di.RegisterToken(c, arbDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)

		eng, err := app.NewEngine(
			pricingDI.GetAggregator(sr),
			arbDI.GetReconciler(sr),
			arbDI.GetController(sr),
			arbDI.GetCycleLog(sr),
			arbDI.GetReporter(sr),
			clk,
			app.EngineConfig{
				VenueAName:    cfg.VenueA.Name,
				VenueBName:    cfg.VenueB.Name,
				Symbol:        cfg.VenueA.Symbol,
				CycleInterval: cfg.Engine.CycleInterval,
				MaxHold:       cfg.Engine.MaxHoldDuration,
			},
			log,
		)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return eng
	})

	return nil
}

// Startup launches the engine loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	m.engine = arbDI.GetEngine(mono.Services())
	if err := m.engine.Start(ctx); err != nil {
		return err
	}
	mono.Logger().Info(ctx, "arbitrage module started",
		"symbol", mono.Config().VenueA.Symbol,
		"cycle_interval", mono.Config().Engine.CycleInterval)
	return nil
}

// Close stops the engine and flushes the cycle log.
func (m *Module) Close() error {
	if m.engine != nil {
		m.engine.Stop()
	}
	return nil
}
