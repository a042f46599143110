package tui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
)

// RecordMsg reports a stored record; N is its 1-based index within its kind.
type RecordMsg struct {
	Record model.Record
	N      int
}

// DroppedMsg reports a metrics event that was not recorded.
type DroppedMsg struct {
	Type string
}

// ExportMsg reports the outcome of one export.
type ExportMsg struct {
	Path string
	Err  error
	Took time.Duration
}

// ParticipantMsg reports a participant joining or leaving the room.
type ParticipantMsg struct {
	Identity string
	Joined   bool
}

// FinalizedMsg reports the end of the session.
type FinalizedMsg struct {
	Summary recorder.Summary
}

// Bridge forwards recorder and session activity to a Dashboard. It
// implements recorder.Observer. Sends never block: when the dashboard
// falls behind, messages are dropped and counted.
type Bridge struct {
	ch   chan tea.Msg
	lost atomic.Int64
}

// NewBridge returns a bridge buffering up to size messages.
func NewBridge(size int) *Bridge {
	if size < 1 {
		size = 256
	}
	return &Bridge{ch: make(chan tea.Msg, size)}
}

// RecordAdded implements recorder.Observer.
func (b *Bridge) RecordAdded(rec model.Record, n int) {
	b.send(RecordMsg{Record: rec, N: n})
}

// EventDropped implements recorder.Observer.
func (b *Bridge) EventDropped(wireType string) {
	b.send(DroppedMsg{Type: wireType})
}

// ExportFinished implements recorder.Observer.
func (b *Bridge) ExportFinished(path string, err error, took time.Duration) {
	b.send(ExportMsg{Path: path, Err: err, Took: took})
}

// Participant reports a participant change.
func (b *Bridge) Participant(identity string, joined bool) {
	b.send(ParticipantMsg{Identity: identity, Joined: joined})
}

// Finalized reports the final summary.
func (b *Bridge) Finalized(s recorder.Summary) {
	b.send(FinalizedMsg{Summary: s})
}

// Lost returns the number of messages dropped because the buffer was full.
func (b *Bridge) Lost() int64 { return b.lost.Load() }

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		b.lost.Add(1)
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
