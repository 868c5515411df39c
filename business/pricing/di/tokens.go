// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/hirokim/crossarb/business/pricing/app"
	"github.com/hirokim/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Aggregator = di.NewToken[*app.Aggregator]("pricing.Aggregator")
)

// Private dependency tokens - internal to pricing module
var (
	BookCache = di.NewToken[*app.BookCache]("pricing:bookCache")
)

// Helper functions for type-safe access
func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetBookCache(c di.ServiceRegistry) *app.BookCache {
	return di.GetToken(c, BookCache)
}
