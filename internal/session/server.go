package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
)

// MaxEnvelopeBytes bounds the size of one ingested event.
const MaxEnvelopeBytes = 1 << 20

// Activity event types published on /v1/events and /v1/stream.
const (
	ActivityStatus       = "status"
	ActivityRecord       = "record"
	ActivityDropped      = "dropped"
	ActivityExport       = "export"
	ActivityExportFailed = "export_failed"
	ActivityParticipant  = "participant"
)

// Config controls the ingest server.
type Config struct {
	Addr         string
	EventsBuffer int
}

// StatusSource reports recorder state. *recorder.Recorder implements it.
type StatusSource interface {
	Status() recorder.Status
}

// HTTPMetrics instruments the server. *telemetry.Collector implements it.
type HTTPMetrics interface {
	RecordHTTPRequest(method, path string, status int, took time.Duration)
	Handler() http.Handler
}

// Event is one entry of the activity feed.
type Event struct {
	ID        int64            `json:"id"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Kind      string           `json:"kind,omitempty"`
	Seq       int              `json:"seq,omitempty"`
	Path      string           `json:"path,omitempty"`
	TookMS    int64            `json:"took_ms,omitempty"`
	Error     string           `json:"error,omitempty"`
	Identity  string           `json:"identity,omitempty"`
	Outcome   Outcome          `json:"outcome,omitempty"`
	Counts    *recorder.Counts `json:"counts,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time       `json:"started_at"`
	Ingested        int64           `json:"ingested"`
	Rejected        int64           `json:"rejected"`
	EventCount      int             `json:"event_count"`
	SubscriberCount int             `json:"subscriber_count"`
	Recorder        recorder.Status `json:"recorder"`
}

// Ack is the response to an accepted session event.
type Ack struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Kind    string  `json:"kind,omitempty"`
}

// Service is the HTTP ingest surface of a recording session. It also
// implements recorder.Observer to feed its activity stream.
type Service struct {
	cfg        Config
	dispatcher *Dispatcher
	status     StatusSource
	metrics    HTTPMetrics
	log        *zap.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	ingested    int64
	rejected    int64
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// NewService returns a service. It accepts events only after Bind.
// metrics may be nil.
func NewService(cfg Config, metrics HTTPMetrics, logger *zap.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8790"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		metrics:   metrics,
		log:       logger.With(zap.String("component", "session")),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Bind attaches the dispatcher and status source. The service observes
// the recorder it dispatches to, so it is created first and bound later.
func (s *Service) Bind(d *Dispatcher, status StatusSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
	s.status = status
}

func (s *Service) bound() (*Dispatcher, StatusSource) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatcher, s.status
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/session/events", s.handleIngest)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
		return s.instrument(mux)
	}
	return mux
}

// Run serves HTTP until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("session server listening", zap.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("session http server: %w", err)
	}
}

// RecordAdded implements recorder.Observer.
func (s *Service) RecordAdded(rec model.Record, n int) {
	s.publish(Event{Type: ActivityRecord, Kind: rec.Kind().String(), Seq: n})
}

// EventDropped implements recorder.Observer.
func (s *Service) EventDropped(wireType string) {
	s.publish(Event{Type: ActivityDropped, Kind: wireType})
}

// ExportFinished implements recorder.Observer.
func (s *Service) ExportFinished(path string, err error, took time.Duration) {
	ev := Event{Type: ActivityExport, Path: path, TookMS: took.Milliseconds()}
	if err != nil {
		ev.Type = ActivityExportFailed
		ev.Error = err.Error()
	}
	s.publish(ev)
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	ev.ID = s.nextEventID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) snapshotStatus() Status {
	var rs recorder.Status
	if _, src := s.bound(); src != nil {
		rs = src.Status()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		StartedAt:       s.startedAt,
		Ingested:        s.ingested,
		Rejected:        s.rejected,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
		Recorder:        rs,
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleIngest(w http.ResponseWriter, r *http.Request) {
	d, _ := s.bound()
	if d == nil {
		http.Error(w, "session not ready", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxEnvelopeBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		s.reject(w, code, err)
		return
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		s.reject(w, http.StatusBadRequest, err)
		return
	}

	res := d.Dispatch(env)

	s.mu.Lock()
	s.ingested++
	s.mu.Unlock()

	if res.Outcome == OutcomeConnected || res.Outcome == OutcomeDisconnected {
		s.publish(Event{Type: ActivityParticipant, Identity: env.Participant.Identity, Outcome: res.Outcome})
	}

	writeJSON(w, http.StatusAccepted, Ack{
		ID:      uuid.NewString(),
		Outcome: res.Outcome,
		Kind:    res.Kind,
	})
}

func (s *Service) reject(w http.ResponseWriter, code int, err error) {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()

	s.log.Warn("rejected session event", zap.Int("status", code), zap.Error(err))
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	counts := s.snapshotStatus().Recorder.Counts
	writeSSE(w, Event{Type: ActivityStatus, Timestamp: time.Now(), Counts: &counts})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Label by route pattern to keep cardinality bounded.
		path := "unmatched"
		if r.Pattern != "" {
			_, path, _ = strings.Cut(r.Pattern, " ")
		}
		s.metrics.RecordHTTPRequest(r.Method, path, rw.code, time.Since(start))
	})
}
