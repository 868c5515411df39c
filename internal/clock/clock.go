// Package clock provides an injectable time source and a bounded poll helper.
package clock

import (
	"context"
	"time"
)

// Clock abstracts the time source so decision logic can be tested deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// New returns the wall clock.
func New() Clock { return Real{} }

// Fake is a manually advanced clock for tests.
type Fake struct {
	Current time.Time
}

// NewFake creates a Fake clock starting at t.
func NewFake(t time.Time) *Fake { return &Fake{Current: t} }

func (f *Fake) Now() time.Time { return f.Current }

// After fires immediately after advancing the fake clock by d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.Current = f.Current.Add(d)
	ch := make(chan time.Time, 1)
	ch <- f.Current
	return ch
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }

// Poll invokes fn at the given interval until fn reports done, the timeout
// elapses, or ctx is cancelled. It returns true if fn reported done. The
// first invocation happens immediately.
func Poll(ctx context.Context, c Clock, timeout, interval time.Duration, fn func() (bool, error)) (bool, error) {
	deadline := c.Now().Add(timeout)
	for {
		done, err := fn()
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if !c.Now().Add(interval).Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-c.After(interval):
		}
	}
}
