package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineRunes maps values onto block runes scaled to the largest value.
// Negative values render as the lowest block.
func SparklineRunes(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}
	return buf.String()
}

// Sparkline renders values as a colored sparkline.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Background(theme.Active.Surface).
		Render(SparklineRunes(values))
}

// Tail returns at most the last n values.
func Tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
