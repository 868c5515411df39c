package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hirokim/crossarb/business/arbitrage/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Arbitrage Engine Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// ReportCycle outputs a one-line summary of the cycle.
func (r *ConsoleReporter) ReportCycle(snap domain.CycleSnapshot) {
	fmt.Fprintf(r.out, "[%s] %s  a→b %s  b→a %s  grossA %s/%s  netB %s  %s/%s\n",
		snap.Timestamp.Format("15:04:05"),
		snap.Symbol,
		snap.SpreadAToB.StringFixed(2),
		snap.SpreadBToA.StringFixed(2),
		snap.LongA.String(),
		snap.ShortA.String(),
		snap.NetB.String(),
		snap.Mode,
		snap.Action,
	)
}

// ReportTrade outputs a closed round trip to the console.
func (r *ConsoleReporter) ReportTrade(trade domain.Trade) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ROUND TRIP CLOSED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Symbol:         %s\n", trade.Symbol)
	fmt.Fprintf(r.out, "Direction:      %s\n", trade.Direction)
	fmt.Fprintf(r.out, "Quantity:       %s\n", trade.Qty.String())
	fmt.Fprintf(r.out, "Opened:         %s\n", trade.EntryTime.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Closed:         %s\n", trade.ExitTime.Format(time.RFC3339))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "SPREADS")
	fmt.Fprintf(r.out, "  Entry:          %s\n", trade.EntrySpread.StringFixed(2))
	fmt.Fprintf(r.out, "  Unwind:         %s\n", trade.ExitSpread.StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "P&L")
	fmt.Fprintf(r.out, "  Gross:          %s\n", trade.GrossPnL.StringFixed(2))
	fmt.Fprintf(r.out, "  Fees:           %s\n", trade.FeeCost.StringFixed(2))
	fmt.Fprintf(r.out, "  Net:            %s\n", trade.NetPnL.StringFixed(2))
	fmt.Fprintf(r.out, "  Reason:         %s\n", trade.ExitReason)
	fmt.Fprintln(r.out, "================================================================================")
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Engine Stopped")
	return nil
}
