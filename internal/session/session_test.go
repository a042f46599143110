package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
	"github.com/AmarBackInField/proPAL-AI/internal/telemetry"
)

const (
	llmLine = `{"type":"metrics_collected","metrics":{"type":"llm_metrics","timestamp":1718000000.25,"label":"openai.LLM","request_id":"r1","duration":1.234567,"ttft":0.2}}`
	vadLine = `{"type":"metrics_collected","metrics":{"type":"vad_metrics","timestamp":1718000000.5}}`
	joinLn  = `{"type":"participant_connected","participant":{"identity":"sip-caller"}}`
	leaveLn = `{"type":"participant_disconnected","participant":{"identity":"sip-caller"}}`
)

type fakeHandler struct {
	mu     sync.Mutex
	events []model.Event
}

func (h *fakeHandler) Handle(ev model.Event) model.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	switch ev := ev.(type) {
	case model.LLMEvent:
		return model.NormalizeLLM(ev)
	case model.EOUEvent:
		return model.NormalizeEOU(ev)
	default:
		return nil
	}
}

func (h *fakeHandler) Status() recorder.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return recorder.Status{Counts: recorder.Counts{LLM: len(h.events)}}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(llmLine))
	require.NoError(t, err)
	assert.Equal(t, TypeMetricsCollected, env.Type)
	llm, ok := env.Metrics.(model.LLMEvent)
	require.True(t, ok)
	assert.Equal(t, "r1", llm.RequestID)

	env, err = DecodeEnvelope([]byte(joinLn))
	require.NoError(t, err)
	assert.Equal(t, "sip-caller", env.Participant.Identity)

	env, err = DecodeEnvelope([]byte(`{"type":"agent_state_changed"}`))
	require.NoError(t, err)
	assert.Nil(t, env.Metrics)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"type":`,
		"no type":        `{"metrics":{}}`,
		"no metrics":     `{"type":"metrics_collected"}`,
		"null metrics":   `{"type":"metrics_collected","metrics":null}`,
		"no participant": `{"type":"participant_connected"}`,
		"empty identity": `{"type":"participant_disconnected","participant":{"identity":""}}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(in))
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}

	_, err := DecodeEnvelope([]byte(`{"type":"metrics_collected","metrics":{"type":"tts_metrics","timestamp":1.5,"duration":1}}`))
	assert.ErrorIs(t, err, model.ErrMissingField)
}

func TestDispatcher(t *testing.T) {
	h := &fakeHandler{}
	var out bytes.Buffer
	d := NewDispatcher(h, cli.NewConsole(&out), zaptest.NewLogger(t))

	var joined, left []string
	d.OnConnect = func(p Participant) { joined = append(joined, p.Identity) }
	d.OnDisconnect = func(p Participant) { left = append(left, p.Identity) }

	for _, line := range []string{joinLn, llmLine, vadLine, leaveLn, `{"type":"agent_state_changed"}`} {
		env, err := DecodeEnvelope([]byte(line))
		require.NoError(t, err)
		res := d.Dispatch(env)
		switch env.Type {
		case TypeParticipantConnected:
			assert.Equal(t, OutcomeConnected, res.Outcome)
		case TypeParticipantDisconnected:
			assert.Equal(t, OutcomeDisconnected, res.Outcome)
		case TypeMetricsCollected:
			if _, ok := env.Metrics.(model.UnknownEvent); ok {
				assert.Equal(t, Result{Outcome: OutcomeDropped, Kind: "vad_metrics"}, res)
			} else {
				assert.Equal(t, Result{Outcome: OutcomeStored, Kind: "LLM"}, res)
			}
		default:
			assert.Equal(t, OutcomeIgnored, res.Outcome)
		}
	}

	assert.Equal(t, []string{"sip-caller"}, joined)
	assert.Equal(t, []string{"sip-caller"}, left)
	assert.Len(t, h.events, 2)
	s := out.String()
	assert.Contains(t, s, "New participant joined: sip-caller")
	assert.Contains(t, s, "Participant left: sip-caller")
	assert.Contains(t, s, "Collected metrics: vad_metrics")
}

func TestReplay(t *testing.T) {
	h := &fakeHandler{}
	d := NewDispatcher(h, nil, nil)

	in := strings.Join([]string{joinLn, "", llmLine, vadLine, leaveLn}, "\n")
	stats, err := Replay(context.Background(), strings.NewReader(in), d)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Lines)
	assert.Equal(t, 4, stats.Events)
	assert.Equal(t, 1, stats.Outcomes[OutcomeStored])
	assert.Equal(t, 1, stats.Outcomes[OutcomeDropped])
}

func TestReplay_ReportsLine(t *testing.T) {
	d := NewDispatcher(&fakeHandler{}, nil, nil)
	in := strings.Join([]string{llmLine, joinLn, `{"type":"metrics_collected","metrics":{"type":"llm_metrics"}}`, llmLine}, "\n")

	stats, err := Replay(context.Background(), strings.NewReader(in), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.ErrorIs(t, err, model.ErrMissingField)
	assert.Equal(t, 2, stats.Events)
}

func TestReplay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, strings.NewReader(llmLine), NewDispatcher(&fakeHandler{}, nil, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := NewService(Config{EventsBuffer: 2}, nil, nil)

	s.RecordAdded(model.LLMRecord{}, 1)
	s.EventDropped("vad_metrics")
	s.ExportFinished("a.xlsx", errors.New("disk full"), time.Millisecond)

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].ID)
	assert.Equal(t, ActivityDropped, s.events[0].Type)
	assert.Equal(t, ActivityExportFailed, s.events[1].Type)
	assert.Equal(t, "disk full", s.events[1].Error)
}

func newTestServer(t *testing.T) (*Service, *httptest.Server, *fakeHandler) {
	t.Helper()
	h := &fakeHandler{}
	logger := zaptest.NewLogger(t)
	s := NewService(Config{}, telemetry.NewCollector(nil, logger), logger)
	s.Bind(NewDispatcher(h, nil, logger), h)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv, h
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/session/events", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestService_Ingest(t *testing.T) {
	_, srv, h := newTestServer(t)

	resp := post(t, srv.URL, llmLine)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var ack Ack
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, OutcomeStored, ack.Outcome)
	assert.Equal(t, "LLM", ack.Kind)
	_, err := uuid.Parse(ack.ID)
	assert.NoError(t, err)

	resp = post(t, srv.URL, `{"type":"metrics_collected","metrics":{"type":"eou_metrics","timestamp":1}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "missing required field")

	resp = post(t, srv.URL, leaveLn)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Len(t, h.events, 1)

	statusResp, err := http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer func() { _ = statusResp.Body.Close() }()
	var st Status
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&st))
	assert.Equal(t, int64(2), st.Ingested)
	assert.Equal(t, int64(1), st.Rejected)
	assert.Equal(t, 1, st.Recorder.Counts.LLM)

	eventsResp, err := http.Get(srv.URL + "/v1/events")
	require.NoError(t, err)
	defer func() { _ = eventsResp.Body.Close() }()
	var events []Event
	require.NoError(t, json.NewDecoder(eventsResp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, ActivityParticipant, events[0].Type)
	assert.Equal(t, OutcomeDisconnected, events[0].Outcome)
}

func TestService_WrongMethodAndHealth(t *testing.T) {
	_, srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/session/events")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestService_Metrics(t *testing.T) {
	_, srv, _ := newTestServer(t)
	post(t, srv.URL, llmLine)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `propal_http_requests_total{method="POST",path="/v1/session/events",status="202"} 1`)
}

func TestService_Unbound(t *testing.T) {
	s := NewService(Config{}, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/session/events", strings.NewReader(llmLine)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestService_Stream(t *testing.T) {
	s, srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "event: status", readEventLine(t, r))

	require.Eventually(t, func() bool {
		return s.snapshotStatus().SubscriberCount == 1
	}, time.Second, 10*time.Millisecond)

	s.RecordAdded(model.LLMRecord{}, 7)
	assert.Equal(t, "event: record", readEventLine(t, r))
}

// readEventLine returns the next "event: ..." line of an SSE stream.
func readEventLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event: ") {
			return line
		}
	}
}
