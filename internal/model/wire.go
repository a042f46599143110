package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMissingField is returned when a recognized metrics payload lacks a
// required attribute. There is no fallback for required attributes.
var ErrMissingField = errors.New("missing required field")

// rawMetrics mirrors the metrics payload emitted by the voice agent SDK.
// Attributes of every kind share one struct; pointer fields distinguish
// "absent" from zero.
type rawMetrics struct {
	Type      string   `json:"type"`
	Timestamp *float64 `json:"timestamp"`
	Label     string   `json:"label"`
	RequestID string   `json:"request_id"`

	Duration      *float64 `json:"duration"`
	TTFT          *float64 `json:"ttft"`
	TTFB          *float64 `json:"ttfb"`
	AudioDuration *float64 `json:"audio_duration"`

	Cancelled        bool    `json:"cancelled"`
	Streamed         bool    `json:"streamed"`
	CompletionTokens int     `json:"completion_tokens"`
	PromptTokens     int     `json:"prompt_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TokensPerSecond  float64 `json:"tokens_per_second"`
	CharactersCount  int     `json:"characters_count"`

	EndOfUtteranceDelay      *float64 `json:"end_of_utterance_delay"`
	TranscriptionDelay       *float64 `json:"transcription_delay"`
	OnUserTurnCompletedDelay *float64 `json:"on_user_turn_completed_delay"`

	SpeechID *string `json:"speech_id"`
	Error    *string `json:"error"`
}

// DecodeMetrics classifies a metrics payload into exactly one Event
// variant. Payloads with an unrecognized type decode to UnknownEvent.
func DecodeMetrics(data []byte) (Event, error) {
	var raw rawMetrics
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding metrics: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}

	kind := KindFromWireType(raw.Type)
	if kind == KindUnknown {
		return UnknownEvent{Type: raw.Type}, nil
	}

	req := requiredFields{kind: kind}
	ts := req.float("timestamp", raw.Timestamp)

	switch kind {
	case KindLLM:
		ev := LLMEvent{
			Timestamp:        unixSeconds(ts),
			Type:             raw.Type,
			Label:            raw.Label,
			RequestID:        raw.RequestID,
			Duration:         req.float("duration", raw.Duration),
			TTFT:             req.float("ttft", raw.TTFT),
			Cancelled:        raw.Cancelled,
			CompletionTokens: raw.CompletionTokens,
			PromptTokens:     raw.PromptTokens,
			TotalTokens:      raw.TotalTokens,
			TokensPerSecond:  raw.TokensPerSecond,
			SpeechID:         raw.SpeechID,
		}
		return req.result(ev)
	case KindTTS:
		ev := TTSEvent{
			Timestamp:       unixSeconds(ts),
			Type:            raw.Type,
			Label:           raw.Label,
			RequestID:       raw.RequestID,
			TTFB:            req.float("ttfb", raw.TTFB),
			Duration:        req.float("duration", raw.Duration),
			AudioDuration:   req.float("audio_duration", raw.AudioDuration),
			Cancelled:       raw.Cancelled,
			CharactersCount: raw.CharactersCount,
			Streamed:        raw.Streamed,
			SpeechID:        raw.SpeechID,
		}
		return req.result(ev)
	case KindSTT:
		ev := STTEvent{
			Timestamp:     unixSeconds(ts),
			Type:          raw.Type,
			Label:         raw.Label,
			RequestID:     raw.RequestID,
			Duration:      req.float("duration", raw.Duration),
			AudioDuration: req.float("audio_duration", raw.AudioDuration),
			Streamed:      raw.Streamed,
			SpeechID:      raw.SpeechID,
			Error:         raw.Error,
		}
		return req.result(ev)
	case KindEOU:
		ev := EOUEvent{
			Timestamp:                unixSeconds(ts),
			Type:                     raw.Type,
			EndOfUtteranceDelay:      req.float("end_of_utterance_delay", raw.EndOfUtteranceDelay),
			TranscriptionDelay:       req.float("transcription_delay", raw.TranscriptionDelay),
			OnUserTurnCompletedDelay: raw.OnUserTurnCompletedDelay,
			SpeechID:                 orDefault(raw.SpeechID, NoSpeechID),
		}
		return req.result(ev)
	}

	return UnknownEvent{Type: raw.Type}, nil
}

// requiredFields collects the first missing required attribute.
type requiredFields struct {
	kind Kind
	err  error
}

func (r *requiredFields) float(name string, v *float64) float64 {
	if v != nil {
		return *v
	}
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s.%s", ErrMissingField, r.kind.WireType(), name)
	}
	return 0
}

// unixSeconds converts fractional Unix seconds to a time.Time.
func unixSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}

func (r *requiredFields) result(ev Event) (Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}
