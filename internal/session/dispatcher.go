package session

import (
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// Handler stores metrics events. *recorder.Recorder implements it.
type Handler interface {
	Handle(ev model.Event) model.Record
}

// Outcome describes what Dispatch did with an envelope.
type Outcome string

const (
	OutcomeStored       Outcome = "stored"
	OutcomeDropped      Outcome = "dropped"
	OutcomeConnected    Outcome = "connected"
	OutcomeDisconnected Outcome = "disconnected"
	OutcomeIgnored      Outcome = "ignored"
)

// Result is the outcome of dispatching one envelope. Kind is the record
// category for stored metrics and the raw metrics type for dropped ones.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Kind    string  `json:"kind,omitempty"`
}

// Dispatcher routes session events. Metrics go to the Handler; participant
// changes invoke the optional hooks.
type Dispatcher struct {
	handler Handler
	console *cli.Console
	log     *zap.Logger

	OnConnect func(p Participant)

	// OnDisconnect runs synchronously inside Dispatch. Callers that
	// finalize from it should start their own goroutine.
	OnDisconnect func(p Participant)
}

// NewDispatcher returns a dispatcher feeding h.
func NewDispatcher(h Handler, console *cli.Console, logger *zap.Logger) *Dispatcher {
	if console == nil {
		console = cli.Discard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handler: h,
		console: console,
		log:     logger.With(zap.String("component", "dispatcher")),
	}
}

// Dispatch handles one envelope to completion.
func (d *Dispatcher) Dispatch(env Envelope) Result {
	switch env.Type {
	case TypeMetricsCollected:
		wireType := env.Metrics.Kind().WireType()
		if u, ok := env.Metrics.(model.UnknownEvent); ok {
			wireType = u.Type
		}
		d.console.Dim("Collected metrics: %s", wireType)

		rec := d.handler.Handle(env.Metrics)
		if rec == nil {
			return Result{Outcome: OutcomeDropped, Kind: wireType}
		}
		return Result{Outcome: OutcomeStored, Kind: rec.Kind().String()}

	case TypeParticipantConnected:
		d.log.Info("participant connected", zap.String("identity", env.Participant.Identity))
		d.console.Success("New participant joined: %s", env.Participant.Identity)
		if d.OnConnect != nil {
			d.OnConnect(env.Participant)
		}
		return Result{Outcome: OutcomeConnected}

	case TypeParticipantDisconnected:
		d.log.Info("participant disconnected", zap.String("identity", env.Participant.Identity))
		d.console.Line(cli.ColorRed, true, "Participant left: %s", env.Participant.Identity)
		if d.OnDisconnect != nil {
			d.OnDisconnect(env.Participant)
		}
		return Result{Outcome: OutcomeDisconnected}

	default:
		d.log.Debug("ignoring session event", zap.String("type", env.Type))
		return Result{Outcome: OutcomeIgnored}
	}
}
