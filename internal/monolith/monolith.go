// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/hirokim/crossarb/internal/clock"
	"github.com/hirokim/crossarb/internal/config"
	"github.com/hirokim/crossarb/internal/di"
	"github.com/hirokim/crossarb/internal/instrument"
	"github.com/hirokim/crossarb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Clock() clock.Clock
	InstrumentRegistry() *instrument.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config      *config.Config
	logger      logger.LoggerInterface
	clock       clock.Clock
	instruments *instrument.Registry
	container   di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	// Use default instrument registry (pre-populated with supported symbols)
	instruments := instrument.DefaultRegistry()

	clk := clock.Real{}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("clock", clk)
	container.Register("instrumentRegistry", instruments)

	return &app{
		config:      cfg,
		logger:      log,
		clock:       clk,
		instruments: instruments,
		container:   container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Clock() clock.Clock {
	return a.clock
}

func (a *app) InstrumentRegistry() *instrument.Registry {
	return a.instruments
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	return nil
}
