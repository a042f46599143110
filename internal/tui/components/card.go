// Package components holds the widgets the live dashboard is built from.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

// LayoutRow splits totalWidth into n widths that sum to exactly totalWidth.
// The first items absorb the remainder.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// Metric is the content of one metric card.
type Metric struct {
	Label  string
	Value  string
	Detail string
	Color  lipgloss.Color
}

// MetricCard renders a bordered card with a label, a value and an optional
// detail line. outerWidth includes the border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	valueColor := m.Color
	if valueColor == "" {
		valueColor = t.TextPrimary
	}

	content := lipgloss.NewStyle().Foreground(t.TextMuted).Render(m.Label) + "\n" +
		lipgloss.NewStyle().Foreground(valueColor).Bold(true).Render(m.Value)
	if m.Detail != "" {
		content += "\n" + lipgloss.NewStyle().Foreground(t.TextDim).Render(m.Detail)
	}
	return cardStyle(outerWidth).Render(content)
}

// MetricRow renders metric cards side by side, filling totalWidth.
func MetricRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(metrics))
	cards := make([]string, len(metrics))
	for i, m := range metrics {
		cards[i] = MetricCard(m, widths[i])
	}
	return CardRow(cards)
}

// ContentCard renders a bordered card with an optional title.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active

	content := ""
	if title != "" {
		content = lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true).Render(title) + "\n"
	}
	content += body
	return cardStyle(outerWidth).Render(content)
}

// CardRow joins rendered cards horizontally.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// CardInnerWidth returns the text width inside a card of the given outer
// width (border and padding removed).
func CardInnerWidth(outerWidth int) int {
	return max(outerWidth-4, 10)
}

func cardStyle(outerWidth int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Active.Border).
		Width(max(outerWidth-2, 10)).
		Padding(0, 1)
}
