package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

// StatusBar renders the bottom bar: key hints on the left, right-aligned
// text on the right.
func StatusBar(width int, hints, right string) string {
	t := theme.Active

	left := " " + hints
	if right != "" {
		right += " "
	}
	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width).
		Render(left + strings.Repeat(" ", padding) + right)
}
