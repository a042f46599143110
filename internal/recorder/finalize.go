package recorder

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/pipeline"
)

// Finalization hints for empty optional categories.
const (
	HintSTTSilent        = "No STT metrics: This is normal with some configurations"
	HintSTTNotConfigured = "No STT metrics: speech-to-text is not configured"
	HintEOUSilent        = "No EOU metrics: Requires VAD-based turn detection"
	HintEOUNotConfigured = "No EOU metrics: turn detection is not configured"
)

// Summary is the outcome of Finalize.
type Summary struct {
	Counts    Counts
	Total     int
	Path      string
	ExportErr error
	Hints     []string
	Digest    pipeline.Digest
	Providers []pipeline.LabelStats
}

// Finalize exports unconditionally and prints the final summary. It may be
// called more than once; every call rewrites the artifact with the full
// state.
func (r *Recorder) Finalize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console.Line(cli.ColorCyan, true, "Finalizing metrics and saving report...")
	r.save()
	r.finalized = true

	c := r.counts()
	set := r.recordSet()
	sum := Summary{
		Counts:    c,
		Total:     c.Total(),
		Path:      r.path,
		ExportErr: r.lastErr,
		Hints:     r.hints(c),
		Digest:    pipeline.Aggregate(set),
		Providers: pipeline.AggregateLabels(set),
	}

	r.console.Success("Final Summary:")
	r.console.Line("", false, "  • LLM Metrics: %d records", c.LLM)
	r.console.Line("", false, "  • TTS Metrics: %d records", c.TTS)
	r.console.Line("", false, "  • STT Metrics: %d records", c.STT)
	r.console.Line("", false, "  • EOU Metrics: %d records", c.EOU)
	r.console.Line("", false, "  • Total Records: %d", sum.Total)
	r.console.Success("Report file: %s", r.path)
	for _, h := range sum.Hints {
		r.console.Warn("%s", h)
	}

	if digest := renderDigest(sum.Digest); digest != "" {
		r.console.Blank()
		r.console.Print(digest)
	}
	if providers := renderProviders(sum.Providers); providers != "" {
		r.console.Print(providers)
	}

	r.log.Info("recorder finalized",
		zap.Int("llm", c.LLM),
		zap.Int("tts", c.TTS),
		zap.Int("stt", c.STT),
		zap.Int("eou", c.EOU),
		zap.String("path", r.path),
	)
	return sum
}

func (r *Recorder) hints(c Counts) []string {
	var hints []string
	if c.STT == 0 {
		if r.caps.STT {
			hints = append(hints, HintSTTSilent)
		} else {
			hints = append(hints, HintSTTNotConfigured)
		}
	}
	if c.EOU == 0 {
		if r.caps.EOU {
			hints = append(hints, HintEOUSilent)
		} else {
			hints = append(hints, HintEOUNotConfigured)
		}
	}
	return hints
}

// renderDigest renders the latency series that have samples.
func renderDigest(d pipeline.Digest) string {
	var rows [][]string
	for _, s := range d.Stats() {
		if s.Count == 0 {
			continue
		}
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Count),
			cli.FormatSeconds(s.Mean),
			cli.FormatSeconds(s.Min),
			cli.FormatSeconds(s.Max),
		})
	}
	if len(rows) == 0 {
		return ""
	}

	if d.PromptTokens+d.CompletionTokens+d.TTSCharacters > 0 {
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"Tokens (prompt/completion)", "", fmt.Sprintf("%s/%s",
			cli.FormatNumber(int64(d.PromptTokens)), cli.FormatNumber(int64(d.CompletionTokens))), "", ""})
		rows = append(rows, []string{"TTS characters", "", cli.FormatNumber(int64(d.TTSCharacters)), "", ""})
	}
	if d.Cancelled+d.STTErrors > 0 {
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"LLM cancelled", "", strconv.Itoa(d.Cancelled), "", ""})
		rows = append(rows, []string{"STT errors", "", strconv.Itoa(d.STTErrors), "", ""})
	}

	return cli.RenderTable(cli.Table{
		Title:      "Latency Digest",
		TitleColor: cli.ColorAccent,
		Headers:    []string{"Series", "Count", "Mean", "Min", "Max"},
		Rows:       rows,
	})
}

func renderProviders(stats []pipeline.LabelStats) string {
	if len(stats) == 0 {
		return ""
	}
	rows := make([][]string, len(stats))
	for i, ls := range stats {
		label := ls.Label
		if label == "" {
			label = model.NotAvailable
		}
		rows[i] = []string{ls.Kind.String(), label, strconv.Itoa(ls.Count), cli.FormatSeconds(ls.MeanSeconds)}
	}
	return cli.RenderTable(cli.Table{
		Title:      "By Provider",
		TitleColor: cli.ColorAccent,
		Headers:    []string{"Kind", "Label", "Records", "Mean Latency"},
		Rows:       rows,
	})
}
