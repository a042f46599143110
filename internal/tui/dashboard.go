// Package tui implements the live terminal dashboard of a recording session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
	"github.com/AmarBackInField/proPAL-AI/internal/tui/components"
	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

const (
	maxContentWidth = 140
	minWidth        = 60
	activitySize    = 8
	sparkPoints     = 40
)

// Options configures a Dashboard.
type Options struct {
	Room       string
	ReportPath string
	Now        func() time.Time
}

type activity struct {
	at    time.Time
	color lipgloss.Color
	text  string
}

type tickMsg time.Time

// Dashboard is the bubbletea model of the live session view.
type Dashboard struct {
	bridge *Bridge
	opts   Options

	width, height int
	spinner       spinner.Model
	started       time.Time
	now           time.Time

	counts     map[model.Kind]int
	latency    map[model.Kind][]float64
	dropped    int
	exports    int
	lastExport time.Time
	exportErr  error
	activity   []activity

	finalized bool
	summary   recorder.Summary
}

// NewDashboard returns a dashboard fed by b.
func NewDashboard(b *Bridge, opts Options) Dashboard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	now := opts.Now()
	return Dashboard{
		bridge:  b,
		opts:    opts,
		spinner: sp,
		started: now,
		now:     now,
		counts:  make(map[model.Kind]int),
		latency: make(map[model.Kind][]float64),
	}
}

// Init implements tea.Model.
func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.bridge.wait(), tickCmd())
}

// Update implements tea.Model.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}
		return d, nil

	case spinner.TickMsg:
		if d.finalized {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case tickMsg:
		d.now = time.Time(msg)
		return d, tickCmd()

	case RecordMsg:
		d.applyRecord(msg)
		return d, d.bridge.wait()

	case DroppedMsg:
		d.dropped++
		d.log(theme.Active.TextDim, "skipped %s", msg.Type)
		return d, d.bridge.wait()

	case ExportMsg:
		if msg.Err != nil {
			d.exportErr = msg.Err
			d.log(theme.Active.Red, "export failed: %v", msg.Err)
		} else {
			d.exports++
			d.exportErr = nil
			d.lastExport = d.opts.Now()
			d.log(theme.Active.Green, "saved %s (%s)", filepath.Base(msg.Path), msg.Took.Round(time.Millisecond))
		}
		return d, d.bridge.wait()

	case ParticipantMsg:
		if msg.Joined {
			d.log(theme.Active.Green, "participant joined: %s", msg.Identity)
		} else {
			d.log(theme.Active.Red, "participant left: %s", msg.Identity)
		}
		return d, d.bridge.wait()

	case FinalizedMsg:
		d.finalized = true
		d.summary = msg.Summary
		d.log(theme.Active.Accent, "finalized: %d records", msg.Summary.Total)
		return d, d.bridge.wait()
	}
	return d, nil
}

func (d *Dashboard) applyRecord(msg RecordMsg) {
	k := msg.Record.Kind()
	d.counts[k] = msg.N
	if v, ok := latencyOf(msg.Record); ok {
		d.latency[k] = components.Tail(append(d.latency[k], v), sparkPoints)
	}
	d.log(theme.Active.KindColor(k), "%s record #%d", k, msg.N)
}

func (d *Dashboard) log(color lipgloss.Color, format string, args ...any) {
	d.activity = append(d.activity, activity{at: d.opts.Now(), color: color, text: fmt.Sprintf(format, args...)})
	if len(d.activity) > activitySize {
		d.activity = d.activity[len(d.activity)-activitySize:]
	}
}

// latencyOf returns the headline latency of a record: time to first token
// or byte for LLM and TTS, processing time for STT, delay for EOU.
func latencyOf(rec model.Record) (float64, bool) {
	switch r := rec.(type) {
	case model.LLMRecord:
		return r.TTFTSeconds, true
	case model.TTSRecord:
		return r.TTFBSeconds, true
	case model.STTRecord:
		return r.DurationSeconds, true
	case model.EOURecord:
		return r.EndOfUtteranceDelaySeconds, true
	default:
		return 0, false
	}
}

var latencyLabels = map[model.Kind]string{
	model.KindLLM: "LLM ttft",
	model.KindTTS: "TTS ttfb",
	model.KindSTT: "STT duration",
	model.KindEOU: "EOU delay",
}

// View implements tea.Model.
func (d Dashboard) View() string {
	if d.width == 0 {
		return ""
	}
	if d.width < minWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  propal needs at least %d columns.\n", d.width, minWidth)
	}

	w := min(d.width, maxContentWidth)
	var b strings.Builder
	b.WriteString(d.viewHeader(w))
	b.WriteString("\n")
	b.WriteString(d.viewCounts(w))
	b.WriteString("\n")

	half := components.LayoutRow(w, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Latency", d.viewLatency(components.CardInnerWidth(half[0])), half[0]),
		components.ContentCard("Export", d.viewExport(components.CardInnerWidth(half[1])), half[1]),
	}))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Activity", d.viewActivity(), w))
	b.WriteString("\n")
	b.WriteString(components.StatusBar(w, "[q]uit", "up "+formatElapsed(d.now.Sub(d.started))))
	return b.String()
}

func (d Dashboard) viewHeader(w int) string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render("◈ propal")
	sub := lipgloss.NewStyle().Foreground(t.TextMuted).Render(" · voice agent metrics")
	if d.opts.Room != "" {
		sub += lipgloss.NewStyle().Foreground(t.TextDim).Render(" · room " + d.opts.Room)
	}

	state := d.spinner.View() + lipgloss.NewStyle().Foreground(t.TextMuted).Render(" recording")
	if d.finalized {
		state = lipgloss.NewStyle().Foreground(t.Green).Bold(true).Render("✓ finalized")
	}

	left := title + sub
	pad := max(w-lipgloss.Width(left)-lipgloss.Width(state), 1)
	return left + strings.Repeat(" ", pad) + state
}

func (d Dashboard) viewCounts(w int) string {
	t := theme.Active
	metrics := make([]components.Metric, 0, len(model.Kinds)+1)
	total := 0
	for _, k := range model.Kinds {
		n := d.counts[k]
		total += n
		detail := ""
		if s := d.latency[k]; len(s) > 0 {
			detail = "last " + cli.FormatSeconds(s[len(s)-1])
		}
		metrics = append(metrics, components.Metric{
			Label:  k.String(),
			Value:  cli.FormatNumber(int64(n)),
			Detail: detail,
			Color:  t.KindColor(k),
		})
	}
	metrics = append(metrics, components.Metric{
		Label:  "Total",
		Value:  cli.FormatNumber(int64(total)),
		Detail: fmt.Sprintf("%d skipped", d.dropped),
	})
	return components.MetricRow(metrics, w)
}

func (d Dashboard) viewLatency(inner int) string {
	t := theme.Active
	labelW := 13
	sparkW := max(inner-labelW-10, 5)

	lines := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		label := lipgloss.NewStyle().Foreground(t.TextMuted).Width(labelW).Render(latencyLabels[k])
		series := components.Tail(d.latency[k], sparkW)
		if len(series) == 0 {
			lines = append(lines, label+lipgloss.NewStyle().Foreground(t.TextDim).Render("no data"))
			continue
		}
		last := cli.FormatSeconds(series[len(series)-1])
		lines = append(lines, label+components.Sparkline(series, t.KindColor(k))+" "+last)
	}
	return strings.Join(lines, "\n")
}

func (d Dashboard) viewExport(inner int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	path := truncateLeft(d.opts.ReportPath, inner)

	lines := []string{
		muted.Render(path),
		fmt.Sprintf("%s %d", muted.Render("exports"), d.exports),
	}
	if d.lastExport.IsZero() {
		lines = append(lines, muted.Render("last    ")+"never")
	} else {
		lines = append(lines, muted.Render("last    ")+d.lastExport.Format("15:04:05"))
	}
	if d.exportErr != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Red).Render("error: "+d.exportErr.Error()))
	}
	if d.finalized {
		for _, h := range d.summary.Hints {
			lines = append(lines, lipgloss.NewStyle().Foreground(t.Yellow).Render(h))
		}
	}
	return strings.Join(lines, "\n")
}

func (d Dashboard) viewActivity() string {
	t := theme.Active
	if len(d.activity) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Render("waiting for metrics...")
	}
	lines := make([]string, len(d.activity))
	for i, a := range d.activity {
		lines[i] = lipgloss.NewStyle().Foreground(t.TextDim).Render(a.at.Format("15:04:05")) + " " +
			lipgloss.NewStyle().Foreground(a.color).Render(a.text)
	}
	return strings.Join(lines, "\n")
}

// truncateLeft keeps the tail of s that fits in w cells, prefixed by an
// ellipsis. A wide grapheme at the cut is dropped whole.
func truncateLeft(s string, w int) string {
	width := lipgloss.Width(s)
	if width <= w {
		return s
	}
	if w <= 0 {
		return ""
	}
	for n := width - w + 1; ; n++ {
		if out := ansi.TruncateLeft(s, n, "…"); lipgloss.Width(out) <= w {
			return out
		}
	}
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run shows the dashboard until the user quits or ctx is canceled.
func Run(ctx context.Context, b *Bridge, opts Options) error {
	p := tea.NewProgram(NewDashboard(b, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
