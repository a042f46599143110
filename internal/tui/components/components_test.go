package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToWidth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(0, 400).Draw(t, "width")
		n := rapid.IntRange(1, 12).Draw(t, "n")

		widths := LayoutRow(width, n)
		if len(widths) != n {
			t.Fatalf("got %d widths, want %d", len(widths), n)
		}
		sum := 0
		for i, w := range widths {
			sum += w
			if i > 0 && w > widths[i-1] {
				t.Fatalf("width %d grew after %d", w, widths[i-1])
			}
		}
		if sum != width {
			t.Fatalf("widths sum to %d, want %d", sum, width)
		}
	})
}

func TestLayoutRowZero(t *testing.T) {
	assert.Nil(t, LayoutRow(80, 0))
}

func TestCardRowMatchesTallestCard(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Short", "Content", 22)
	tall := ContentCard("Tall", "1\n2\n3\n4\n5", 22)
	tallLines := len(strings.Split(tall, "\n"))
	require.Less(t, len(strings.Split(short, "\n")), tallLines)

	joined := CardRow([]string{tall, short})
	assert.Len(t, strings.Split(joined, "\n"), tallLines)
	assert.Equal(t, 44, lipgloss.Width(joined))
}

func TestMetricRowWidth(t *testing.T) {
	theme.SetActive("terminal")
	defer theme.SetActive("flexoki-dark")

	row := MetricRow([]Metric{
		{Label: "LLM", Value: "3"},
		{Label: "TTS", Value: "4", Detail: "last 1.2s"},
		{Label: "STT", Value: "0"},
	}, 61)
	assert.Equal(t, 61, lipgloss.Width(row))
	assert.Contains(t, row, "last 1.2s")
	assert.Empty(t, MetricRow(nil, 80))
}

func TestSparklineRunes(t *testing.T) {
	assert.Equal(t, "", SparklineRunes(nil))
	assert.Equal(t, "▁█", SparklineRunes([]float64{0, 2}))
	assert.Equal(t, "▁▁", SparklineRunes([]float64{0, 0}))
	assert.Equal(t, "▁█", SparklineRunes([]float64{-1, 3}))
}

func TestTail(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, Tail(v, 2))
	assert.Equal(t, v, Tail(v, 10))
	assert.Equal(t, v, Tail(v, 0))
}

func TestStatusBar(t *testing.T) {
	bar := StatusBar(40, "[q]uit", "3 records")
	assert.Equal(t, 40, lipgloss.Width(bar))
	assert.True(t, strings.HasPrefix(strings.TrimLeft(stripANSI(bar), " "), "[q]uit"))
	assert.Contains(t, bar, "3 records")
}

func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && r == 'm':
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}
