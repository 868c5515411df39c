// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/hirokim/crossarb/business/venue/app"
	"github.com/hirokim/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	// GatewayA is the gateway for the first venue (primary leg).
	GatewayA = di.NewToken[*app.Gateway]("venue.GatewayA")

	// GatewayB is the gateway for the second venue.
	GatewayB = di.NewToken[*app.Gateway]("venue.GatewayB")
)

// Helper functions for type-safe access
func GetGatewayA(c di.ServiceRegistry) *app.Gateway {
	return di.GetToken(c, GatewayA)
}

func GetGatewayB(c di.ServiceRegistry) *app.Gateway {
	return di.GetToken(c, GatewayB)
}
