package app

import (
	"context"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
)

// BookSource fetches an order book snapshot on demand. The venue gateway
// satisfies this; the aggregator uses it as a REST fallback when the
// streamed snapshot is missing or too old.
type BookSource interface {
	GetOrderBook(ctx context.Context, symbol string) (*venuedomain.OrderBook, error)
}
