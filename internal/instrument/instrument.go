// Package instrument holds tradable instrument metadata shared by all venues.
package instrument

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Instrument describes a tradable symbol and its venue-facing precision rules.
// It is a reference entity: identity is the Symbol, everything else is metadata.
type Instrument struct {
	symbol    string
	priceTick decimal.Decimal // minimum price increment
	qtyStep   decimal.Decimal // minimum quantity increment
	minQty    decimal.Decimal // smallest order the venues accept
}

// New creates an Instrument with the given precision rules.
func New(symbol string, priceTick, qtyStep, minQty decimal.Decimal) *Instrument {
	if symbol == "" {
		panic("instrument: empty symbol")
	}
	if priceTick.IsNegative() || qtyStep.IsNegative() || minQty.IsNegative() {
		panic("instrument: negative precision rule")
	}
	return &Instrument{symbol: symbol, priceTick: priceTick, qtyStep: qtyStep, minQty: minQty}
}

// Symbol returns the canonical symbol (e.g. "BTC_JPY").
func (i *Instrument) Symbol() string { return i.symbol }

// MinQty returns the smallest placeable order quantity.
func (i *Instrument) MinQty() decimal.Decimal { return i.minQty }

// RoundPrice snaps a price onto the instrument's tick grid, toward zero.
func (i *Instrument) RoundPrice(p decimal.Decimal) decimal.Decimal {
	if i.priceTick.IsZero() {
		return p
	}
	return p.Div(i.priceTick).Truncate(0).Mul(i.priceTick)
}

// RoundQty snaps a quantity onto the instrument's step grid, toward zero.
// Rounding down keeps orders inside the available size.
func (i *Instrument) RoundQty(q decimal.Decimal) decimal.Decimal {
	if i.qtyStep.IsZero() {
		return q
	}
	return q.Div(i.qtyStep).Truncate(0).Mul(i.qtyStep)
}

// Placeable reports whether q meets the minimum order size after rounding.
func (i *Instrument) Placeable(q decimal.Decimal) bool {
	return i.RoundQty(q).GreaterThanOrEqual(i.minQty) && i.RoundQty(q).IsPositive()
}

// Registry is a thread-safe registry of known instruments.
type Registry struct {
	bySymbol map[string]*Instrument
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bySymbol: make(map[string]*Instrument)}
}

// Register adds an instrument. Panics on duplicate symbols.
func (r *Registry) Register(i *Instrument) {
	if i == nil {
		panic("instrument: cannot register nil instrument")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySymbol[i.symbol]; exists {
		panic(fmt.Sprintf("instrument: %s already registered", i.symbol))
	}
	r.bySymbol[i.symbol] = i
}

// Get retrieves an instrument by symbol.
func (r *Registry) Get(symbol string) (*Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.bySymbol[symbol]
	return i, ok
}

// MustGet retrieves an instrument by symbol, panicking if unknown.
func (r *Registry) MustGet(symbol string) *Instrument {
	i, ok := r.Get(symbol)
	if !ok {
		panic(fmt.Sprintf("instrument: %s not found in registry", symbol))
	}
	return i
}

// DefaultRegistry returns a registry pre-populated with the instruments the
// engine is commonly configured for.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(New("BTC_JPY",
		decimal.NewFromInt(1),
		decimal.RequireFromString("0.0001"),
		decimal.RequireFromString("0.0001"),
	))
	r.Register(New("ETH_JPY",
		decimal.NewFromInt(1),
		decimal.RequireFromString("0.0001"),
		decimal.RequireFromString("0.0001"),
	))
	return r
}
