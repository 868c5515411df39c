package domain

import "errors"

// Sentinel errors for venue interactions. Callers match with errors.Is.
var (
	// ErrAmbiguousOutcome means an order submission failed in a way that
	// leaves the venue-side outcome unknown. The order may or may not
	// exist; the caller must reconcile against venue state before acting.
	ErrAmbiguousOutcome = errors.New("order outcome unknown")

	// ErrOrderRejected means the venue refused the order. The order
	// definitively does not exist; retrying the same order is pointless.
	ErrOrderRejected = errors.New("order rejected by venue")

	// ErrOrderNotFound means the venue has no record of the order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInsufficientBalance means the venue refused the order for lack
	// of funds or margin.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBookUnavailable means no order book snapshot could be produced.
	ErrBookUnavailable = errors.New("order book unavailable")
)
