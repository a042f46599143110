package tui

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

var clock = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestDashboard() Dashboard {
	d := NewDashboard(NewBridge(8), Options{
		Room:       "call-42",
		ReportPath: "metrics_reports/agent_metrics_20250314_092653.xlsx",
		Now:        func() time.Time { return clock },
	})
	m, _ := d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(Dashboard)
}

func step(t *testing.T, d Dashboard, msg tea.Msg) Dashboard {
	t.Helper()
	m, _ := d.Update(msg)
	out, ok := m.(Dashboard)
	require.True(t, ok)
	return out
}

func TestBridge_ImplementsObserver(t *testing.T) {
	var _ recorder.Observer = (*Bridge)(nil)
}

func TestBridge_NeverBlocks(t *testing.T) {
	b := NewBridge(2)
	for i := 0; i < 5; i++ {
		b.EventDropped("vad_metrics")
	}
	assert.Equal(t, int64(3), b.Lost())

	msg := b.wait()()
	assert.Equal(t, DroppedMsg{Type: "vad_metrics"}, msg)
}

func TestBridge_ForwardsInOrder(t *testing.T) {
	b := NewBridge(8)
	rec := model.TTSRecord{TTFBSeconds: 0.25}
	b.RecordAdded(rec, 1)
	b.ExportFinished("r.xlsx", nil, time.Millisecond)
	b.Participant("sip-caller", false)
	b.Finalized(recorder.Summary{Total: 1})

	assert.Equal(t, RecordMsg{Record: rec, N: 1}, b.wait()())
	assert.Equal(t, ExportMsg{Path: "r.xlsx", Took: time.Millisecond}, b.wait()())
	assert.Equal(t, ParticipantMsg{Identity: "sip-caller"}, b.wait()())
	assert.Equal(t, FinalizedMsg{Summary: recorder.Summary{Total: 1}}, b.wait()())
}

func TestDashboard_RecordsUpdateCountsAndLatency(t *testing.T) {
	d := newTestDashboard()
	d = step(t, d, RecordMsg{Record: model.LLMRecord{TTFTSeconds: 0.5}, N: 1})
	d = step(t, d, RecordMsg{Record: model.LLMRecord{TTFTSeconds: 0.75}, N: 2})
	d = step(t, d, RecordMsg{Record: model.EOURecord{EndOfUtteranceDelaySeconds: 1.2}, N: 1})
	d = step(t, d, DroppedMsg{Type: "vad_metrics"})

	assert.Equal(t, 2, d.counts[model.KindLLM])
	assert.Equal(t, 1, d.counts[model.KindEOU])
	assert.Equal(t, []float64{0.5, 0.75}, d.latency[model.KindLLM])
	assert.Equal(t, 1, d.dropped)

	view := d.View()
	assert.Contains(t, view, "propal")
	assert.Contains(t, view, "room call-42")
	assert.Contains(t, view, "last 0.75s")
	assert.Contains(t, view, "1 skipped")
	assert.Contains(t, view, "skipped vad_metrics")
	assert.Contains(t, view, "LLM record #2")
}

func TestDashboard_LatencySeriesBounded(t *testing.T) {
	d := newTestDashboard()
	for i := 1; i <= sparkPoints+10; i++ {
		d = step(t, d, RecordMsg{Record: model.TTSRecord{TTFBSeconds: float64(i)}, N: i})
	}
	assert.Len(t, d.latency[model.KindTTS], sparkPoints)
	assert.Equal(t, float64(sparkPoints+10), d.latency[model.KindTTS][sparkPoints-1])
	assert.Len(t, d.activity, activitySize)
}

func TestDashboard_Exports(t *testing.T) {
	d := newTestDashboard()
	d = step(t, d, ExportMsg{Path: "metrics_reports/a.xlsx", Took: 12 * time.Millisecond})
	assert.Equal(t, 1, d.exports)
	assert.Equal(t, clock, d.lastExport)
	assert.Contains(t, d.View(), "saved a.xlsx (12ms)")

	d = step(t, d, ExportMsg{Path: "metrics_reports/a.xlsx", Err: errors.New("disk full")})
	assert.Equal(t, 1, d.exports)
	assert.Contains(t, d.View(), "error: disk full")

	d = step(t, d, ExportMsg{Path: "metrics_reports/a.xlsx"})
	assert.NoError(t, d.exportErr)
	assert.NotContains(t, d.View(), "error: disk full")
}

func TestDashboard_FinalizedShowsHints(t *testing.T) {
	d := newTestDashboard()
	d = step(t, d, ParticipantMsg{Identity: "sip-caller", Joined: true})
	d = step(t, d, FinalizedMsg{Summary: recorder.Summary{Total: 0, Hints: []string{recorder.HintEOUSilent}}})

	view := d.View()
	assert.True(t, d.finalized)
	assert.Contains(t, view, "finalized")
	assert.Contains(t, view, "participant joined: sip-caller")
	assert.Contains(t, view, recorder.HintEOUSilent)
}

func TestDashboard_Quit(t *testing.T) {
	d := newTestDashboard()
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := d.Update(key)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestDashboard_Narrow(t *testing.T) {
	d := newTestDashboard()
	d = step(t, d, tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Contains(t, d.View(), "Terminal too narrow")

	assert.Empty(t, NewDashboard(NewBridge(1), Options{}).View())
}

func TestDashboard_ViewFitsWidth(t *testing.T) {
	d := newTestDashboard()
	d = step(t, d, RecordMsg{Record: model.STTRecord{DurationSeconds: 0.1}, N: 1})
	for _, line := range strings.Split(d.View(), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 120, line)
	}
}

func TestTruncateLeft_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short.xlsx", truncateLeft("short.xlsx", 20))
	assert.Equal(t, "…/b.xlsx", truncateLeft("reports/b.xlsx", 8))

	for _, path := range []string{
		"métricas/relatórios/agent_metrics_20250314_092653.xlsx",
		"報告/音声エージェント/agent_metrics_20250314_092653.xlsx",
	} {
		for w := 5; w < 30; w++ {
			got := truncateLeft(path, w)
			assert.True(t, utf8.ValidString(got), "%q at %d", got, w)
			assert.LessOrEqual(t, lipgloss.Width(got), w, "%q at %d", got, w)
			assert.True(t, strings.HasPrefix(got, "…"), got)
			assert.True(t, strings.HasSuffix(path, strings.TrimPrefix(got, "…")), got)
		}
	}
}

func TestDashboard_MultibyteReportPath(t *testing.T) {
	d := NewDashboard(NewBridge(1), Options{ReportPath: "報告/音声エージェント/" + strings.Repeat("é", 80) + ".xlsx"})
	d = step(t, d, tea.WindowSizeMsg{Width: 100, Height: 30})
	view := d.View()
	assert.True(t, utf8.ValidString(view))
	for _, line := range strings.Split(view, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 100, line)
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0m05s", formatElapsed(5*time.Second))
	assert.Equal(t, "2m00s", formatElapsed(2*time.Minute))
	assert.Equal(t, "1h01m01s", formatElapsed(time.Hour+time.Minute+time.Second))
}
