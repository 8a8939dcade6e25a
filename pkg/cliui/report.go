package cliui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/papercomputeco/adpulse/pkg/metrics"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(26)
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

// KPIPanel renders the report totals as a bordered panel.
func KPIPanel(title string, rows int, r *metrics.Report) string {
	lines := []string{
		titleStyle.Render(title),
		"",
		kpiLine("Rows", strconv.Itoa(rows)),
		kpiLine("Total conversions", strconv.FormatInt(r.TotalConversions, 10)),
		kpiLine("Total amount spent", Money(r.TotalAmountSpent)),
		kpiLine("Avg cost per conversion", costPerConversion(r.AverageCostPerConversion)),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func kpiLine(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// Money formats an amount with a leading dollar sign and two decimals.
func Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func costPerConversion(r metrics.Ratio) string {
	d, ok := r.Decimal()
	if !ok {
		return fmt.Sprintf("n/a %s", StepStyle.Render("(no conversions)"))
	}
	return "$" + d.StringFixed(4)
}
