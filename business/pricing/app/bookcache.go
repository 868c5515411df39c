// Package app contains application services and port definitions for the pricing context.
package app

import (
	"sync"
	"sync/atomic"

	venuedomain "github.com/hirokim/crossarb/business/venue/domain"
)

// BookCache keeps the latest order book snapshot per venue in a single
// overwrite slot. Feed goroutines publish concurrently; the cycle loop
// reads without blocking and only ever sees complete snapshots.
type BookCache struct {
	mu    sync.Mutex
	slots map[string]*atomic.Pointer[venuedomain.OrderBook]
}

// NewBookCache creates an empty cache.
func NewBookCache() *BookCache {
	return &BookCache{
		slots: make(map[string]*atomic.Pointer[venuedomain.OrderBook]),
	}
}

// Publish replaces the venue's snapshot. Older snapshots are dropped, not
// queued: only the freshest book matters.
func (c *BookCache) Publish(book *venuedomain.OrderBook) {
	if book == nil {
		return
	}
	c.slot(book.Venue).Store(book)
}

// Latest returns the venue's most recent snapshot, or false when nothing
// has been published yet.
func (c *BookCache) Latest(venue string) (*venuedomain.OrderBook, bool) {
	c.mu.Lock()
	slot, ok := c.slots[venue]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	book := slot.Load()
	return book, book != nil
}

func (c *BookCache) slot(venue string) *atomic.Pointer[venuedomain.OrderBook] {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[venue]
	if !ok {
		slot = &atomic.Pointer[venuedomain.OrderBook]{}
		c.slots[venue] = slot
	}
	return slot
}
