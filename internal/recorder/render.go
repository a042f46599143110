package recorder

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

func kindColor(k model.Kind) lipgloss.Color {
	switch k {
	case model.KindLLM:
		return cli.ColorRed
	case model.KindTTS:
		return cli.ColorBlue
	case model.KindSTT:
		return cli.ColorGreen
	case model.KindEOU:
		return cli.ColorYellow
	default:
		return cli.ColorTextDim
	}
}

func kindTitle(k model.Kind) string {
	if k == model.KindEOU {
		return "End of Utterance Metrics Report"
	}
	return k.String() + " Metrics Report"
}

// recordRows returns the display rows of rec in column order.
func recordRows(rec model.Record) [][]string {
	ts := model.FormatTimestamp
	switch r := rec.(type) {
	case model.LLMRecord:
		return [][]string{
			{"Timestamp", ts(r.Timestamp)},
			{"Type", r.Type},
			{"Label", r.Label},
			{"Request ID", r.RequestID},
			{"Duration", cli.FormatSeconds(r.DurationSeconds)},
			{"Time to First Token", cli.FormatSeconds(r.TTFTSeconds)},
			{"Cancelled", cli.FormatBool(r.Cancelled)},
			{"Completion Tokens", strconv.Itoa(r.CompletionTokens)},
			{"Prompt Tokens", strconv.Itoa(r.PromptTokens)},
			{"Total Tokens", strconv.Itoa(r.TotalTokens)},
			{"Tokens/Second", cli.FormatFloat(r.TokensPerSecond)},
			{"Speech ID", r.SpeechID},
		}
	case model.TTSRecord:
		return [][]string{
			{"Timestamp", ts(r.Timestamp)},
			{"Type", r.Type},
			{"Label", r.Label},
			{"Request ID", r.RequestID},
			{"TTFB", cli.FormatSeconds(r.TTFBSeconds)},
			{"Duration", cli.FormatSeconds(r.DurationSeconds)},
			{"Audio Duration", cli.FormatSeconds(r.AudioDurationSeconds)},
			{"Cancelled", cli.FormatBool(r.Cancelled)},
			{"Characters Count", strconv.Itoa(r.CharactersCount)},
			{"Streamed", cli.FormatBool(r.Streamed)},
			{"Speech ID", r.SpeechID},
		}
	case model.STTRecord:
		return [][]string{
			{"Timestamp", ts(r.Timestamp)},
			{"Type", r.Type},
			{"Label", r.Label},
			{"Request ID", r.RequestID},
			{"Duration", cli.FormatSeconds(r.DurationSeconds)},
			{"Audio Duration", cli.FormatSeconds(r.AudioDurationSeconds)},
			{"Streamed", cli.FormatBool(r.Streamed)},
			{"Speech ID", r.SpeechID},
			{"Error", r.Error},
		}
	case model.EOURecord:
		return [][]string{
			{"Timestamp", ts(r.Timestamp)},
			{"Type", r.Type},
			{"End of Utterance Delay", cli.FormatSeconds(r.EndOfUtteranceDelaySeconds)},
			{"Transcription Delay", cli.FormatSeconds(r.TranscriptionDelaySeconds)},
			{"Turn Completed Delay", cli.FormatSeconds(r.OnUserTurnCompletedDelaySeconds)},
			{"Speech ID", r.SpeechID},
		}
	default:
		return nil
	}
}

func renderRecord(rec model.Record) string {
	k := rec.Kind()
	return cli.RenderKV(kindTitle(k), kindColor(k), recordRows(rec))
}
