// Package pipeline aggregates recorded telemetry into latency digests.
package pipeline

import (
	"sort"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// Stat summarizes one latency series in seconds.
type Stat struct {
	Name  string
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

func (s *Stat) add(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	// Mean holds the running sum until finish.
	s.Mean += v
	s.Count++
}

func (s *Stat) finish() {
	if s.Count > 0 {
		s.Mean = model.Round(s.Mean/float64(s.Count), model.DurationPrecision)
	}
}

// Digest is the latency overview printed at finalization.
type Digest struct {
	LLMTTFT       Stat
	LLMDuration   Stat
	TTSTTFB       Stat
	STTDuration   Stat
	EOUDelay      Stat
	Transcription Stat

	CompletionTokens int
	PromptTokens     int
	TTSCharacters    int
	Cancelled        int
	STTErrors        int
}

// Stats returns the digest series in display order.
func (d Digest) Stats() []Stat {
	return []Stat{d.LLMTTFT, d.LLMDuration, d.TTSTTFB, d.STTDuration, d.EOUDelay, d.Transcription}
}

// Aggregate computes the latency digest over all records in set.
func Aggregate(set model.RecordSet) Digest {
	d := Digest{
		LLMTTFT:       Stat{Name: "LLM time to first token"},
		LLMDuration:   Stat{Name: "LLM duration"},
		TTSTTFB:       Stat{Name: "TTS time to first byte"},
		STTDuration:   Stat{Name: "STT duration"},
		EOUDelay:      Stat{Name: "End of utterance delay"},
		Transcription: Stat{Name: "Transcription delay"},
	}

	for _, r := range set.LLM {
		d.LLMTTFT.add(r.TTFTSeconds)
		d.LLMDuration.add(r.DurationSeconds)
		d.CompletionTokens += r.CompletionTokens
		d.PromptTokens += r.PromptTokens
		if r.Cancelled {
			d.Cancelled++
		}
	}
	for _, r := range set.TTS {
		d.TTSTTFB.add(r.TTFBSeconds)
		d.TTSCharacters += r.CharactersCount
		if r.Cancelled {
			d.Cancelled++
		}
	}
	for _, r := range set.STT {
		d.STTDuration.add(r.DurationSeconds)
		if r.Error != model.NoError {
			d.STTErrors++
		}
	}
	for _, r := range set.EOU {
		d.EOUDelay.add(r.EndOfUtteranceDelaySeconds)
		d.Transcription.add(r.TranscriptionDelaySeconds)
	}

	d.LLMTTFT.finish()
	d.LLMDuration.finish()
	d.TTSTTFB.finish()
	d.STTDuration.finish()
	d.EOUDelay.finish()
	d.Transcription.finish()

	return d
}

// LabelStats is the per-provider breakdown of a category.
type LabelStats struct {
	Kind  model.Kind
	Label string
	Count int
	// MeanSeconds averages the category's primary latency: TTFT for LLM,
	// TTFB for TTS and duration for STT.
	MeanSeconds float64
}

// AggregateLabels groups LLM, TTS and STT records by provider label,
// most active first.
func AggregateLabels(set model.RecordSet) []LabelStats {
	type key struct {
		kind  model.Kind
		label string
	}
	sums := make(map[key]*LabelStats)
	add := func(k model.Kind, label string, v float64) {
		ls, ok := sums[key{k, label}]
		if !ok {
			ls = &LabelStats{Kind: k, Label: label}
			sums[key{k, label}] = ls
		}
		ls.Count++
		ls.MeanSeconds += v
	}

	for _, r := range set.LLM {
		add(model.KindLLM, r.Label, r.TTFTSeconds)
	}
	for _, r := range set.TTS {
		add(model.KindTTS, r.Label, r.TTFBSeconds)
	}
	for _, r := range set.STT {
		add(model.KindSTT, r.Label, r.DurationSeconds)
	}

	out := make([]LabelStats, 0, len(sums))
	for _, ls := range sums {
		ls.MeanSeconds = model.Round(ls.MeanSeconds/float64(ls.Count), model.DurationPrecision)
		out = append(out, *ls)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Label < out[j].Label
	})
	return out
}
