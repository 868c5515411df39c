package infra

import (
	"context"
	"fmt"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
	"github.com/hirokim/crossarb/pkg/ui"
)

// TUIReporter implements Reporter by forwarding engine events to the
// running Bubble Tea program. The program itself is owned by main.
type TUIReporter struct {
	venueA string
	venueB string
}

// NewTUIReporter creates a TUIReporter for the given venue pair.
func NewTUIReporter(venueA, venueB string) *TUIReporter {
	return &TUIReporter{venueA: venueA, venueB: venueB}
}

// Start announces the startup steps to the TUI. The first reconciled
// cycle flips them to connected.
func (r *TUIReporter) Start(ctx context.Context) error {
	ui.Send(ui.StartupMsg{Step: r.venueA, Status: "connecting"})
	ui.Send(ui.StartupMsg{Step: r.venueB, Status: "connecting"})
	ui.Send(ui.LogMsg{Level: "info", Message: "engine loop starting"})
	return nil
}

// ReportCycle sends a cycle snapshot to the TUI.
func (r *TUIReporter) ReportCycle(snap domain.CycleSnapshot) {
	ui.Send(ui.CycleMsg{Snapshot: snap})
}

// ReportTrade sends a closed round trip to the TUI.
func (r *TUIReporter) ReportTrade(trade domain.Trade) {
	ui.Send(ui.TradeMsg{Trade: trade})
	ui.Send(ui.LogMsg{
		Level:   "info",
		Message: fmt.Sprintf("round trip closed: net %s (%s)", trade.NetPnL.StringFixed(2), trade.ExitReason),
	})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	ui.Send(ui.LogMsg{Level: "info", Message: "engine loop stopped"})
	return nil
}
