// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// QuoteRow is one venue's top of book.
type QuoteRow struct {
	Venue   string
	Bid     decimal.Decimal
	Ask     decimal.Decimal
	Long    decimal.Decimal
	Short   decimal.Decimal
	NetSize decimal.Decimal
}

// QuotesComponent renders both venues' quotes, positions and the two
// directional spreads.
type QuotesComponent struct {
	rows           []QuoteRow
	spreadAToB     decimal.Decimal
	spreadBToA     decimal.Decimal
	entryThreshold decimal.Decimal
	haveData       bool
}

// NewQuotesComponent creates an empty quotes component.
func NewQuotesComponent(entryThreshold decimal.Decimal) *QuotesComponent {
	return &QuotesComponent{entryThreshold: entryThreshold}
}

// Update replaces the displayed quotes and spreads.
func (q *QuotesComponent) Update(rows []QuoteRow, aToB, bToA decimal.Decimal) {
	q.rows = rows
	q.spreadAToB = aToB
	q.spreadBToA = bToA
	q.haveData = true
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	if !q.haveData {
		return "Waiting for market data..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	signalStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("MARKET"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-10s  %14s  %14s  %18s\n", "Venue", "Bid", "Ask", "Position"))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 62)))
	sb.WriteString("\n")

	for _, row := range q.rows {
		pos := row.NetSize
		posStyle := dimStyle
		if pos.IsPositive() {
			posStyle = positiveStyle
		} else if pos.IsNegative() {
			posStyle = negativeStyle
		}
		sb.WriteString(fmt.Sprintf("  %-10s  %14s  %14s  %s\n",
			row.Venue,
			row.Bid.StringFixed(0),
			row.Ask.StringFixed(0),
			posStyle.Render(fmt.Sprintf("%18s", pos.String())),
		))
	}

	sb.WriteString("\n")
	sb.WriteString(q.renderSpread("A→B", q.spreadAToB, signalStyle, positiveStyle, negativeStyle))
	sb.WriteString(q.renderSpread("B→A", q.spreadBToA, signalStyle, positiveStyle, negativeStyle))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  entry threshold: %s", q.entryThreshold.StringFixed(0))))

	return sb.String()
}

func (q *QuotesComponent) renderSpread(label string, spread decimal.Decimal, signal, positive, negative lipgloss.Style) string {
	style := negative
	marker := " "
	if spread.IsPositive() {
		style = positive
	}
	if spread.GreaterThan(q.entryThreshold) {
		style = signal
		marker = "▲"
	}
	return fmt.Sprintf("  spread %s  %s %s\n", label, style.Render(fmt.Sprintf("%12s", spread.StringFixed(1))), signal.Render(marker))
}
