package model

import "time"

// TimestampLayout is the export format for record timestamps and the
// report generation time.
const TimestampLayout = "2006-01-02 15:04:05"

// Sentinel values substituted for optional attributes the session omitted.
// NoSpeechID is the stringified null speech id of an EOU record.
const (
	NotAvailable = "N/A"
	NoError      = "None"
	NoSpeechID   = "None"
)

// Record is a normalized, stored telemetry record.
type Record interface {
	Kind() Kind
	// Values returns the export cells in Columns(Kind()) order.
	Values() []any
}

// LLMRecord is a normalized LLM measurement.
type LLMRecord struct {
	Timestamp        time.Time
	Type             string
	Label            string
	RequestID        string
	DurationSeconds  float64
	TTFTSeconds      float64
	Cancelled        bool
	CompletionTokens int
	PromptTokens     int
	TotalTokens      int
	TokensPerSecond  float64
	SpeechID         string
}

// TTSRecord is a normalized TTS measurement.
type TTSRecord struct {
	Timestamp            time.Time
	Type                 string
	Label                string
	RequestID            string
	TTFBSeconds          float64
	DurationSeconds      float64
	AudioDurationSeconds float64
	Cancelled            bool
	CharactersCount      int
	Streamed             bool
	SpeechID             string
}

// STTRecord is a normalized STT measurement.
type STTRecord struct {
	Timestamp            time.Time
	Type                 string
	Label                string
	RequestID            string
	DurationSeconds      float64
	AudioDurationSeconds float64
	Streamed             bool
	SpeechID             string
	Error                string
}

// EOURecord is a normalized end-of-utterance measurement.
type EOURecord struct {
	Timestamp                       time.Time
	Type                            string
	EndOfUtteranceDelaySeconds      float64
	TranscriptionDelaySeconds       float64
	OnUserTurnCompletedDelaySeconds float64
	SpeechID                        string
}

func (LLMRecord) Kind() Kind { return KindLLM }
func (TTSRecord) Kind() Kind { return KindTTS }
func (STTRecord) Kind() Kind { return KindSTT }
func (EOURecord) Kind() Kind { return KindEOU }

var (
	llmColumns = []string{
		"timestamp", "type", "label", "request_id", "duration_seconds",
		"time_to_first_token_seconds", "cancelled", "completion_tokens",
		"prompt_tokens", "total_tokens", "tokens_per_second", "speech_id",
	}
	ttsColumns = []string{
		"timestamp", "type", "label", "request_id", "ttfb_seconds",
		"duration_seconds", "audio_duration_seconds", "cancelled",
		"characters_count", "streamed", "speech_id",
	}
	sttColumns = []string{
		"timestamp", "type", "label", "request_id", "duration_seconds",
		"audio_duration_seconds", "streamed", "speech_id", "error",
	}
	eouColumns = []string{
		"timestamp", "type", "end_of_utterance_delay_seconds",
		"transcription_delay_seconds", "on_user_turn_completed_delay_seconds",
		"speech_id",
	}
)

// Columns returns the export column names for a kind, in field order.
func Columns(k Kind) []string {
	var cols []string
	switch k {
	case KindLLM:
		cols = llmColumns
	case KindTTS:
		cols = ttsColumns
	case KindSTT:
		cols = sttColumns
	case KindEOU:
		cols = eouColumns
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// FormatTimestamp renders t in local time using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

func (r LLMRecord) Values() []any {
	return []any{
		FormatTimestamp(r.Timestamp), r.Type, r.Label, r.RequestID,
		r.DurationSeconds, r.TTFTSeconds, r.Cancelled, r.CompletionTokens,
		r.PromptTokens, r.TotalTokens, r.TokensPerSecond, r.SpeechID,
	}
}

func (r TTSRecord) Values() []any {
	return []any{
		FormatTimestamp(r.Timestamp), r.Type, r.Label, r.RequestID,
		r.TTFBSeconds, r.DurationSeconds, r.AudioDurationSeconds, r.Cancelled,
		r.CharactersCount, r.Streamed, r.SpeechID,
	}
}

func (r STTRecord) Values() []any {
	return []any{
		FormatTimestamp(r.Timestamp), r.Type, r.Label, r.RequestID,
		r.DurationSeconds, r.AudioDurationSeconds, r.Streamed, r.SpeechID,
		r.Error,
	}
}

func (r EOURecord) Values() []any {
	return []any{
		FormatTimestamp(r.Timestamp), r.Type, r.EndOfUtteranceDelaySeconds,
		r.TranscriptionDelaySeconds, r.OnUserTurnCompletedDelaySeconds,
		r.SpeechID,
	}
}

// RecordSet holds a copy of the four record logs.
type RecordSet struct {
	LLM []LLMRecord
	TTS []TTSRecord
	STT []STTRecord
	EOU []EOURecord
}

// Len returns the number of records of kind k.
func (s RecordSet) Len(k Kind) int {
	switch k {
	case KindLLM:
		return len(s.LLM)
	case KindTTS:
		return len(s.TTS)
	case KindSTT:
		return len(s.STT)
	case KindEOU:
		return len(s.EOU)
	default:
		return 0
	}
}

// Total returns the number of records across all kinds.
func (s RecordSet) Total() int {
	return len(s.LLM) + len(s.TTS) + len(s.STT) + len(s.EOU)
}

// Rows returns the export rows for kind k in insertion order.
func (s RecordSet) Rows(k Kind) [][]any {
	var rows [][]any
	switch k {
	case KindLLM:
		for _, r := range s.LLM {
			rows = append(rows, r.Values())
		}
	case KindTTS:
		for _, r := range s.TTS {
			rows = append(rows, r.Values())
		}
	case KindSTT:
		for _, r := range s.STT {
			rows = append(rows, r.Values())
		}
	case KindEOU:
		for _, r := range s.EOU {
			rows = append(rows, r.Values())
		}
	}
	return rows
}
