// Package recorder buffers voice-agent telemetry per category, renders each
// record to the console and keeps an export artifact up to date.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/export"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// ExportEvery is the per-category record count that triggers an export.
const ExportEvery = 3

// DefaultReportsDir is used when Options.ReportsDir is empty.
const DefaultReportsDir = "metrics_reports"

// DefaultNotes are the summary notes used when Options.Notes is nil.
var DefaultNotes = export.Notes{
	model.KindLLM: "LLM metrics from GPT-4o-mini",
	model.KindTTS: "TTS metrics from Cartesia Sonic-2",
	model.KindSTT: "STT metrics from Deepgram Nova-2 (may be 0 with some configs)",
	model.KindEOU: "EOU metrics require VAD/turn detection (may be 0)",
}

// Capabilities records which optional pipeline stages are configured.
// They only affect the finalization hints for empty categories.
type Capabilities struct {
	STT bool `json:"stt"`
	EOU bool `json:"eou"`
}

// Options configures a Recorder. Zero values get defaults.
type Options struct {
	ReportsDir   string
	Writer       export.Writer
	Console      *cli.Console
	Logger       *zap.Logger
	Observer     Observer
	Notes        export.Notes
	Capabilities Capabilities
	Now          func() time.Time
}

// Counts holds the per-category record counts.
type Counts struct {
	LLM int `json:"llm"`
	TTS int `json:"tts"`
	STT int `json:"stt"`
	EOU int `json:"eou"`
}

// Total returns the sum of all categories.
func (c Counts) Total() int { return c.LLM + c.TTS + c.STT + c.EOU }

// Status is a point-in-time view of the recorder.
type Status struct {
	Path         string       `json:"path"`
	Counts       Counts       `json:"counts"`
	Total        int          `json:"total"`
	Dropped      int          `json:"dropped"`
	Exports      int          `json:"exports"`
	LastExport   time.Time    `json:"last_export"`
	LastError    string       `json:"last_error,omitempty"`
	Finalized    bool         `json:"finalized"`
	StartedAt    time.Time    `json:"started_at"`
	Capabilities Capabilities `json:"capabilities"`
}

// Recorder is the metrics sink of one agent session. All methods are safe
// for concurrent use; each event is fully handled, export included, before
// the next one starts.
type Recorder struct {
	mu sync.Mutex

	llm []model.LLMRecord
	tts []model.TTSRecord
	stt []model.STTRecord
	eou []model.EOURecord

	path    string
	writer  export.Writer
	console *cli.Console
	log     *zap.Logger
	obs     Observer
	notes   export.Notes
	caps    Capabilities
	now     func() time.Time
	started time.Time

	dropped    int
	exports    int
	lastExport time.Time
	lastErr    error
	finalized  bool
}

// New creates the reports directory and fixes the export path for the
// lifetime of the recorder.
func New(opts Options) (*Recorder, error) {
	if opts.ReportsDir == "" {
		opts.ReportsDir = DefaultReportsDir
	}
	if opts.Writer == nil {
		opts.Writer = export.XLSXWriter{}
	}
	if opts.Console == nil {
		opts.Console = cli.Discard()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Observer == nil {
		opts.Observer = Nop()
	}
	if opts.Notes == nil {
		opts.Notes = DefaultNotes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := export.EnsureDir(opts.ReportsDir); err != nil {
		return nil, err
	}

	started := opts.Now()
	r := &Recorder{
		path:    export.TargetPath(opts.ReportsDir, opts.Writer.Ext(), started),
		writer:  opts.Writer,
		console: opts.Console,
		log:     opts.Logger.With(zap.String("component", "recorder")),
		obs:     opts.Observer,
		notes:   opts.Notes,
		caps:    opts.Capabilities,
		now:     opts.Now,
		started: started,
	}
	r.log.Debug("recorder ready", zap.String("path", r.path))
	return r, nil
}

// Path returns the export artifact path.
func (r *Recorder) Path() string { return r.path }

// Handle records one event. It returns the stored record, or nil when the
// event kind is not recorded.
func (r *Recorder) Handle(ev model.Event) model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := ev.(type) {
	case model.LLMEvent:
		rec := model.NormalizeLLM(ev)
		r.llm = append(r.llm, rec)
		r.stored(rec, len(r.llm))
		return rec
	case model.TTSEvent:
		rec := model.NormalizeTTS(ev)
		r.tts = append(r.tts, rec)
		r.stored(rec, len(r.tts))
		return rec
	case model.STTEvent:
		rec := model.NormalizeSTT(ev)
		r.stt = append(r.stt, rec)
		r.stored(rec, len(r.stt))
		return rec
	case model.EOUEvent:
		rec := model.NormalizeEOU(ev)
		r.eou = append(r.eou, rec)
		r.stored(rec, len(r.eou))
		return rec
	case model.UnknownEvent:
		r.dropped++
		r.log.Debug("dropping metrics event", zap.String("type", ev.Type))
		r.console.Dim("Skipping unsupported metrics type %q", ev.Type)
		r.obs.EventDropped(ev.Type)
		return nil
	default:
		r.dropped++
		r.log.Warn("dropping event of unexpected Go type", zap.String("type", fmt.Sprintf("%T", ev)))
		return nil
	}
}

// stored renders rec, reports it and exports on every ExportEvery-th
// record of its kind. Must hold r.mu.
func (r *Recorder) stored(rec model.Record, n int) {
	kind := rec.Kind()
	r.console.Blank()
	r.console.Print(renderRecord(rec))
	r.console.Dim("%s Record #%d saved", kind, n)
	r.console.Blank()

	r.log.Debug("record stored", zap.Stringer("kind", kind), zap.Int("n", n))
	r.obs.RecordAdded(rec, n)

	if n%ExportEvery == 0 {
		r.save()
	}
}

// Save exports the full current state. Failures are reported, never returned.
func (r *Recorder) Save() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save()
}

func (r *Recorder) save() {
	start := time.Now()
	set := r.recordSet()
	report := export.BuildReport(set, r.notes, r.now())

	err := r.writer.Write(r.path, report)
	took := time.Since(start)
	r.obs.ExportFinished(r.path, err, took)

	if err != nil {
		r.lastErr = err
		r.log.Error("export failed", zap.String("path", r.path), zap.Error(err))
		r.console.Error("Error saving metrics report: %v", err)
		return
	}

	r.exports++
	r.lastErr = nil
	r.lastExport = r.now()
	r.log.Info("report exported",
		zap.String("path", r.path),
		zap.Int("records", set.Total()),
		zap.Duration("took", took),
	)

	for _, k := range model.Kinds {
		if n := set.Len(k); n > 0 {
			r.console.Line(kindColor(k), false, "Saved %d %s metrics records", n, k)
		}
	}
	r.console.Success("Metrics report saved to: %s", r.path)
}

// Counts returns the per-category record counts.
func (r *Recorder) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts()
}

func (r *Recorder) counts() Counts {
	return Counts{LLM: len(r.llm), TTS: len(r.tts), STT: len(r.stt), EOU: len(r.eou)}
}

// Records returns a copy of the record logs.
func (r *Recorder) Records() model.RecordSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordSet()
}

func (r *Recorder) recordSet() model.RecordSet {
	return model.RecordSet{
		LLM: append([]model.LLMRecord(nil), r.llm...),
		TTS: append([]model.TTSRecord(nil), r.tts...),
		STT: append([]model.STTRecord(nil), r.stt...),
		EOU: append([]model.EOURecord(nil), r.eou...),
	}
}

// Status returns a snapshot for status endpoints and dashboards.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.counts()
	s := Status{
		Path:         r.path,
		Counts:       c,
		Total:        c.Total(),
		Dropped:      r.dropped,
		Exports:      r.exports,
		LastExport:   r.lastExport,
		Finalized:    r.finalized,
		StartedAt:    r.started,
		Capabilities: r.caps,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	return s
}
