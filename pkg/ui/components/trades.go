package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// TradeRow is one closed round trip in the list.
type TradeRow struct {
	Time        string
	Direction   string
	Qty         decimal.Decimal
	EntrySpread decimal.Decimal
	ExitSpread  decimal.Decimal
	NetPnL      decimal.Decimal
	Reason      string
}

// TradesComponent renders the closed round-trip list, newest first.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
	offset  int
	visible int
}

// NewTradesComponent creates a trades list keeping up to maxRows entries.
func NewTradesComponent(maxRows int) *TradesComponent {
	return &TradesComponent{
		rows:    make([]TradeRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add prepends a closed trade.
func (t *TradesComponent) Add(row TradeRow) {
	t.rows = append([]TradeRow{row}, t.rows...)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[:t.maxRows]
	}
	t.offset = 0
}

// Clear drops all trades.
func (t *TradesComponent) Clear() {
	t.rows = make([]TradeRow, 0)
	t.offset = 0
}

// ScrollUp moves the window toward older trades.
func (t *TradesComponent) ScrollUp() {
	if t.offset+t.visible < len(t.rows) {
		t.offset++
	}
}

// ScrollDown moves the window toward recent trades.
func (t *TradesComponent) ScrollDown() {
	if t.offset > 0 {
		t.offset--
	}
}

// View renders the trades component.
func (t *TradesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	winStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("CLOSED ROUND TRIPS"))
	sb.WriteString("\n\n")

	if len(t.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No round trips closed yet..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-9s %-6s %9s %9s %9s %10s  %s\n",
		"Time", "Dir", "Qty", "Entry", "Exit", "Net P&L", "Reason"))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 66)))
	sb.WriteString("\n")

	end := t.offset + t.visible
	if end > len(t.rows) {
		end = len(t.rows)
	}
	for _, row := range t.rows[t.offset:end] {
		pnlStyle := winStyle
		if row.NetPnL.IsNegative() {
			pnlStyle = lossStyle
		}
		sb.WriteString(fmt.Sprintf("  %-9s %-6s %9s %9s %9s %s  %s\n",
			row.Time,
			row.Direction,
			row.Qty.String(),
			row.EntrySpread.StringFixed(1),
			row.ExitSpread.StringFixed(1),
			pnlStyle.Render(fmt.Sprintf("%10s", row.NetPnL.StringFixed(1))),
			dimStyle.Render(row.Reason),
		))
	}

	if len(t.rows) > t.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  showing %d-%d of %d", t.offset+1, end, len(t.rows))))
		sb.WriteString("\n")
	}
	return sb.String()
}
