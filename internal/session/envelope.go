// Package session receives voice-agent session events and routes them to
// the metrics recorder, over HTTP or from a recorded JSONL file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// Session event types.
const (
	TypeMetricsCollected        = "metrics_collected"
	TypeParticipantConnected    = "participant_connected"
	TypeParticipantDisconnected = "participant_disconnected"
)

// ErrInvalidEnvelope is returned for envelopes that cannot be routed.
var ErrInvalidEnvelope = errors.New("invalid session event")

// Participant identifies a room participant.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

// Envelope is one decoded session event. Metrics is set only for
// metrics_collected events; Participant only for participant events.
type Envelope struct {
	Type        string
	Metrics     model.Event
	Participant Participant
}

type rawEnvelope struct {
	Type        string          `json:"type"`
	Metrics     json.RawMessage `json:"metrics"`
	Participant *Participant    `json:"participant"`
}

// DecodeEnvelope parses one session event. Envelope types other than the
// ones this package knows decode without error and are ignored on dispatch.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}

	env := Envelope{Type: raw.Type}
	switch raw.Type {
	case "":
		return Envelope{}, fmt.Errorf("%w: missing type", ErrInvalidEnvelope)
	case TypeMetricsCollected:
		if len(raw.Metrics) == 0 || string(raw.Metrics) == "null" {
			return Envelope{}, fmt.Errorf("%w: %s without metrics", ErrInvalidEnvelope, raw.Type)
		}
		ev, err := model.DecodeMetrics(raw.Metrics)
		if err != nil {
			return Envelope{}, err
		}
		env.Metrics = ev
	case TypeParticipantConnected, TypeParticipantDisconnected:
		if raw.Participant == nil || raw.Participant.Identity == "" {
			return Envelope{}, fmt.Errorf("%w: %s without participant identity", ErrInvalidEnvelope, raw.Type)
		}
		env.Participant = *raw.Participant
	}
	return env, nil
}
