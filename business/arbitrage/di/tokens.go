// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/hirokim/crossarb/business/arbitrage/app"
	"github.com/hirokim/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("arbitrage.Engine")
)

// Private dependency tokens - internal to arbitrage module
var (
	Reconciler = di.NewToken[*app.Reconciler]("arbitrage:reconciler")
	Controller = di.NewToken[*app.Controller]("arbitrage:controller")
	CycleLog   = di.NewToken[app.CycleLog]("arbitrage:cycleLog")
	Reporter   = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetReconciler(c di.ServiceRegistry) *app.Reconciler {
	return di.GetToken(c, Reconciler)
}

func GetController(c di.ServiceRegistry) *app.Controller {
	return di.GetToken(c, Controller)
}

func GetCycleLog(c di.ServiceRegistry) app.CycleLog {
	return di.GetToken(c, CycleLog)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
