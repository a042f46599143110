// Package model defines the telemetry events, normalized records and
// categories handled by the propal metrics recorder.
package model

// Kind is the telemetry category of an event or record.
type Kind int

// Telemetry categories. KindUnknown is never stored.
const (
	KindUnknown Kind = iota
	KindLLM
	KindTTS
	KindSTT
	KindEOU
)

// Kinds lists the recorded categories in report order.
var Kinds = []Kind{KindLLM, KindTTS, KindSTT, KindEOU}

// String returns the short display name ("LLM", "TTS", ...).
func (k Kind) String() string {
	switch k {
	case KindLLM:
		return "LLM"
	case KindTTS:
		return "TTS"
	case KindSTT:
		return "STT"
	case KindEOU:
		return "EOU"
	default:
		return "Unknown"
	}
}

// WireType returns the metrics "type" discriminator emitted by the voice
// agent SDK for this kind.
func (k Kind) WireType() string {
	switch k {
	case KindLLM:
		return "llm_metrics"
	case KindTTS:
		return "tts_metrics"
	case KindSTT:
		return "stt_metrics"
	case KindEOU:
		return "eou_metrics"
	default:
		return ""
	}
}

// SheetName returns the export table name for this kind.
func (k Kind) SheetName() string {
	if k == KindUnknown {
		return ""
	}
	return k.String() + "_Metrics"
}

// KindFromWireType maps a metrics "type" discriminator to a Kind.
func KindFromWireType(t string) Kind {
	for _, k := range Kinds {
		if k.WireType() == t {
			return k
		}
	}
	return KindUnknown
}
