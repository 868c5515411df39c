// Package paper implements an in-memory simulated venue for tests and
// paper trading.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hirokim/crossarb/business/venue/domain"
)

// Venue is a deterministic in-memory venue. Orders that cross the current
// book fill immediately and move the position; everything else rests until
// cancelled. It implements app.Adapter.
type Venue struct {
	name string

	mu     sync.Mutex
	book   *domain.OrderBook
	pos    domain.Position
	orders map[string]domain.Order // keyed by venue order id
	nextID int

	// fault injection for tests
	bookErr   error
	posErr    error
	placeErr  error
	cancelErr error
}

// New creates a paper venue with a flat position and no book.
func New(name, symbol string) *Venue {
	return &Venue{
		name:   name,
		pos:    domain.Position{Venue: name, Symbol: symbol, UpdatedAt: time.Now()},
		orders: make(map[string]domain.Order),
	}
}

// Name returns the venue identifier.
func (v *Venue) Name() string { return v.name }

// SetBook installs the order book snapshot returned by GetOrderBook.
func (v *Venue) SetBook(book *domain.OrderBook) {
	v.mu.Lock()
	defer v.mu.Unlock()
	book.Venue = v.name
	v.book = book
}

// SetPosition overrides the current position.
func (v *Venue) SetPosition(pos domain.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos.Venue = v.name
	pos.UpdatedAt = time.Now()
	v.pos = pos
}

// FailNextBook makes the next GetOrderBook calls return err until reset with nil.
func (v *Venue) FailNextBook(err error) { v.mu.Lock(); v.bookErr = err; v.mu.Unlock() }

// FailPositions makes GetPosition return err until reset with nil.
func (v *Venue) FailPositions(err error) { v.mu.Lock(); v.posErr = err; v.mu.Unlock() }

// FailPlacements makes PlaceOrder return err until reset with nil.
func (v *Venue) FailPlacements(err error) { v.mu.Lock(); v.placeErr = err; v.mu.Unlock() }

// FailCancels makes CancelOrder return err until reset with nil.
func (v *Venue) FailCancels(err error) { v.mu.Lock(); v.cancelErr = err; v.mu.Unlock() }

// GetOrderBook returns the installed book snapshot.
func (v *Venue) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bookErr != nil {
		return nil, v.bookErr
	}
	if v.book == nil {
		return nil, domain.ErrBookUnavailable
	}
	copied := *v.book
	copied.Timestamp = time.Now()
	return &copied, nil
}

// GetPosition returns the simulated position.
func (v *Venue) GetPosition(ctx context.Context, symbol string) (domain.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.posErr != nil {
		return domain.Position{}, v.posErr
	}
	pos := v.pos
	pos.UpdatedAt = time.Now()
	return pos, nil
}

// ListOpenOrders returns all resting orders.
func (v *Venue) ListOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	orders := make([]domain.Order, 0, len(v.orders))
	for _, o := range v.orders {
		orders = append(orders, o)
	}
	return orders, nil
}

// PlaceOrder fills the order against the installed book when it crosses,
// otherwise lets it rest.
func (v *Venue) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.placeErr != nil {
		return order, v.placeErr
	}

	v.nextID++
	order.VenueOrderID = fmt.Sprintf("%s-%d", v.name, v.nextID)

	if v.crosses(order) {
		order.FilledQty = order.Qty
		order.Status = domain.StatusFilled
		v.applyFill(order.Side, order.Qty)
		return order, nil
	}

	order.Status = domain.StatusOpen
	v.orders[order.VenueOrderID] = order
	return order, nil
}

// CancelOrder removes a resting order.
func (v *Venue) CancelOrder(ctx context.Context, order domain.Order) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancelErr != nil {
		return v.cancelErr
	}
	if _, ok := v.orders[order.VenueOrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(v.orders, order.VenueOrderID)
	return nil
}

// FillOpenOrders force-fills all resting orders, as if the market traded
// through them.
func (v *Venue) FillOpenOrders() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, o := range v.orders {
		v.applyFill(o.Side, o.Remaining())
		delete(v.orders, id)
	}
}

func (v *Venue) crosses(order domain.Order) bool {
	if v.book == nil {
		return false
	}
	if order.Side == domain.SideBuy {
		ask := v.book.BestAsk()
		return ask != nil && order.Price.GreaterThanOrEqual(ask.Price)
	}
	bid := v.book.BestBid()
	return bid != nil && order.Price.LessThanOrEqual(bid.Price)
}

// applyFill nets a fill against the opposite side first, the way a
// leverage venue closes exposure before opening new.
func (v *Venue) applyFill(side domain.Side, qty decimal.Decimal) {
	if side == domain.SideBuy {
		closed := decimal.Min(v.pos.Short, qty)
		v.pos.Short = v.pos.Short.Sub(closed)
		v.pos.Long = v.pos.Long.Add(qty.Sub(closed))
	} else {
		closed := decimal.Min(v.pos.Long, qty)
		v.pos.Long = v.pos.Long.Sub(closed)
		v.pos.Short = v.pos.Short.Add(qty.Sub(closed))
	}
	v.pos.UpdatedAt = time.Now()
}
