package model

import "time"

// Event is a raw telemetry event as delivered by the voice session.
// The set of implementations is closed: LLMEvent, TTSEvent, STTEvent,
// EOUEvent and UnknownEvent.
type Event interface {
	Kind() Kind
	event()
}

// LLMEvent is one language-model request measurement.
type LLMEvent struct {
	Timestamp        time.Time
	Type             string
	Label            string
	RequestID        string
	Duration         float64
	TTFT             float64
	Cancelled        bool
	CompletionTokens int
	PromptTokens     int
	TotalTokens      int
	TokensPerSecond  float64
	SpeechID         *string
}

// TTSEvent is one speech synthesis measurement.
type TTSEvent struct {
	Timestamp       time.Time
	Type            string
	Label           string
	RequestID       string
	TTFB            float64
	Duration        float64
	AudioDuration   float64
	Cancelled       bool
	CharactersCount int
	Streamed        bool
	SpeechID        *string
}

// STTEvent is one speech recognition measurement.
type STTEvent struct {
	Timestamp     time.Time
	Type          string
	Label         string
	RequestID     string
	Duration      float64
	AudioDuration float64
	Streamed      bool
	SpeechID      *string
	Error         *string
}

// EOUEvent is one end-of-utterance (turn detection) measurement.
type EOUEvent struct {
	Timestamp                time.Time
	Type                     string
	EndOfUtteranceDelay      float64
	TranscriptionDelay       float64
	OnUserTurnCompletedDelay *float64
	SpeechID                 string
}

// UnknownEvent is any telemetry the recorder does not store (VAD metrics,
// realtime-model metrics, future additions).
type UnknownEvent struct {
	Type string
}

func (LLMEvent) Kind() Kind     { return KindLLM }
func (TTSEvent) Kind() Kind     { return KindTTS }
func (STTEvent) Kind() Kind     { return KindSTT }
func (EOUEvent) Kind() Kind     { return KindEOU }
func (UnknownEvent) Kind() Kind { return KindUnknown }

func (LLMEvent) event()     {}
func (TTSEvent) event()     {}
func (STTEvent) event()     {}
func (EOUEvent) event()     {}
func (UnknownEvent) event() {}
