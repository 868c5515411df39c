// Package venue implements the venue bounded context for exchange access.
package venue

import (
	"context"
	"fmt"

	"github.com/hirokim/crossarb/business/venue/app"
	venueDI "github.com/hirokim/crossarb/business/venue/di"
	"github.com/hirokim/crossarb/business/venue/infra/bitbank"
	"github.com/hirokim/crossarb/business/venue/infra/gmocoin"
	"github.com/hirokim/crossarb/business/venue/infra/paper"
	"github.com/hirokim/crossarb/internal/config"
	"github.com/hirokim/crossarb/internal/di"
	"github.com/hirokim/crossarb/internal/logger"
	"github.com/hirokim/crossarb/internal/monolith"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices registers both venue gateways with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, venueDI.GatewayA, func(sr di.ServiceRegistry) *app.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return buildGateway(cfg, cfg.VenueA, log)
	})

	di.RegisterToken(c, venueDI.GatewayB, func(sr di.ServiceRegistry) *app.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return buildGateway(cfg, cfg.VenueB, log)
	})

	return nil
}

// Startup initializes the venue module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Force construction so misconfigured venues fail at startup, not on
	// the first trading cycle.
	a := venueDI.GetGatewayA(mono.Services())
	b := venueDI.GetGatewayB(mono.Services())

	log.Info(ctx, "venue module started", "venue_a", a.Name(), "venue_b", b.Name())
	return nil
}

func buildGateway(cfg *config.Config, vc config.VenueConfig, log logger.LoggerInterface) *app.Gateway {
	adapter, err := buildAdapter(vc, log)
	if err != nil {
		panic("failed to create venue adapter: " + err.Error())
	}

	gwCfg := app.GatewayConfig{
		MaxRetries:     cfg.Gateway.MaxRetries,
		InitialBackoff: cfg.Gateway.InitialBackoff,
		MaxBackoff:     cfg.Gateway.MaxBackoff,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		RatePerSecond:  cfg.Gateway.RatePerSecond,
		RateBurst:      cfg.Gateway.RateBurst,
	}
	gw, err := app.NewGateway(adapter, gwCfg, log)
	if err != nil {
		panic("failed to create venue gateway: " + err.Error())
	}
	return gw
}

func buildAdapter(vc config.VenueConfig, log logger.LoggerInterface) (app.Adapter, error) {
	switch vc.Driver {
	case "gmocoin":
		return gmocoin.New(gmocoin.Config{
			RESTURL:   vc.RESTURL,
			APIKey:    vc.APIKey,
			APISecret: vc.APISecret,
		}, log)
	case "bitbank":
		return bitbank.New(bitbank.Config{
			RESTURL:   vc.RESTURL,
			APIKey:    vc.APIKey,
			APISecret: vc.APISecret,
		}, log)
	case "paper":
		return paper.New(vc.Name, vc.Symbol), nil
	default:
		return nil, fmt.Errorf("unknown venue driver %q", vc.Driver)
	}
}
