package model

import "strconv"

// Decimal places kept for durations and rates at normalization time.
const (
	DurationPrecision = 4
	RatePrecision     = 2
)

// Round rounds the exact decimal value of v to the given number of
// decimals, ties to even. 2.675 rounds to 2.67 since its binary value
// is slightly below the tie.
func Round(v float64, places int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return f
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// NormalizeLLM converts an LLM event into its stored record.
func NormalizeLLM(ev LLMEvent) LLMRecord {
	return LLMRecord{
		Timestamp:        ev.Timestamp,
		Type:             ev.Type,
		Label:            ev.Label,
		RequestID:        ev.RequestID,
		DurationSeconds:  Round(ev.Duration, DurationPrecision),
		TTFTSeconds:      Round(ev.TTFT, DurationPrecision),
		Cancelled:        ev.Cancelled,
		CompletionTokens: ev.CompletionTokens,
		PromptTokens:     ev.PromptTokens,
		TotalTokens:      ev.TotalTokens,
		TokensPerSecond:  Round(ev.TokensPerSecond, RatePrecision),
		SpeechID:         orDefault(ev.SpeechID, NotAvailable),
	}
}

// NormalizeTTS converts a TTS event into its stored record.
func NormalizeTTS(ev TTSEvent) TTSRecord {
	return TTSRecord{
		Timestamp:            ev.Timestamp,
		Type:                 ev.Type,
		Label:                ev.Label,
		RequestID:            ev.RequestID,
		TTFBSeconds:          Round(ev.TTFB, DurationPrecision),
		DurationSeconds:      Round(ev.Duration, DurationPrecision),
		AudioDurationSeconds: Round(ev.AudioDuration, DurationPrecision),
		Cancelled:            ev.Cancelled,
		CharactersCount:      ev.CharactersCount,
		Streamed:             ev.Streamed,
		SpeechID:             orDefault(ev.SpeechID, NotAvailable),
	}
}

// NormalizeSTT converts an STT event into its stored record.
func NormalizeSTT(ev STTEvent) STTRecord {
	return STTRecord{
		Timestamp:            ev.Timestamp,
		Type:                 ev.Type,
		Label:                ev.Label,
		RequestID:            ev.RequestID,
		DurationSeconds:      Round(ev.Duration, DurationPrecision),
		AudioDurationSeconds: Round(ev.AudioDuration, DurationPrecision),
		Streamed:             ev.Streamed,
		SpeechID:             orDefault(ev.SpeechID, NotAvailable),
		Error:                orDefault(ev.Error, NoError),
	}
}

// NormalizeEOU converts an end-of-utterance event into its stored record.
// A missing turn-completed delay is stored as 0 and a missing speech id
// as NoSpeechID.
func NormalizeEOU(ev EOUEvent) EOURecord {
	var turnDelay float64
	if ev.OnUserTurnCompletedDelay != nil {
		turnDelay = *ev.OnUserTurnCompletedDelay
	}
	speechID := ev.SpeechID
	if speechID == "" {
		speechID = NoSpeechID
	}
	return EOURecord{
		Timestamp:                       ev.Timestamp,
		Type:                            ev.Type,
		EndOfUtteranceDelaySeconds:      Round(ev.EndOfUtteranceDelay, DurationPrecision),
		TranscriptionDelaySeconds:       Round(ev.TranscriptionDelay, DurationPrecision),
		OnUserTurnCompletedDelaySeconds: Round(turnDelay, DurationPrecision),
		SpeechID:                        speechID,
	}
}
