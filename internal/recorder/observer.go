package recorder

import (
	"time"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// Observer receives recorder activity. Calls are made while the recorder
// lock is held, so implementations must not call back into the Recorder.
type Observer interface {
	// RecordAdded fires after rec was appended as the n-th record of its kind.
	RecordAdded(rec model.Record, n int)
	// EventDropped fires for events of an unrecognized metrics type.
	EventDropped(wireType string)
	// ExportFinished fires after every export attempt.
	ExportFinished(path string, err error, took time.Duration)
}

// Nop returns an Observer that ignores everything.
func Nop() Observer { return nopObserver{} }

type nopObserver struct{}

func (nopObserver) RecordAdded(model.Record, int)               {}
func (nopObserver) EventDropped(string)                         {}
func (nopObserver) ExportFinished(string, error, time.Duration) {}

// Multi fans out to several observers in order. Nil entries are skipped.
func Multi(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) RecordAdded(rec model.Record, n int) {
	for _, o := range m {
		o.RecordAdded(rec, n)
	}
}

func (m multiObserver) EventDropped(wireType string) {
	for _, o := range m {
		o.EventDropped(wireType)
	}
}

func (m multiObserver) ExportFinished(path string, err error, took time.Duration) {
	for _, o := range m {
		o.ExportFinished(path, err, took)
	}
}
