// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"time"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
)

// Message types for TUI updates

// CycleMsg is sent after every engine cycle.
type CycleMsg struct {
	Snapshot domain.CycleSnapshot
}

// TradeMsg is sent when a round trip is closed and recorded.
type TradeMsg struct {
	Trade domain.Trade
}

// ConnectionStatusMsg is sent when a venue connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
