// Package app contains application services and port definitions for the venue context.
package app

import (
	"context"

	"github.com/hirokim/crossarb/business/venue/domain"
)

// Adapter defines the capability set every trading venue must provide.
// Implementations talk to one venue's API and normalize its responses
// into domain types.
type Adapter interface {
	// Name returns the venue identifier (e.g. "gmocoin", "bitbank").
	Name() string

	// GetOrderBook retrieves the current order book snapshot.
	GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error)

	// GetPosition retrieves the venue's view of the held position.
	GetPosition(ctx context.Context, symbol string) (domain.Position, error)

	// ListOpenOrders retrieves all resting orders for the symbol.
	ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)

	// PlaceOrder submits an order and returns it with the venue order id
	// filled in. A transport failure after submission leaves the outcome
	// unknown; see domain.ErrAmbiguousOutcome.
	PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// CancelOrder cancels a resting order. Cancelling an already
	// filled or cancelled order is not an error.
	CancelOrder(ctx context.Context, order domain.Order) error
}
