package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

func TestCollector_RecordAdded(t *testing.T) {
	c := NewCollector(nil, zaptest.NewLogger(t))

	c.RecordAdded(model.LLMRecord{Label: "openai.LLM", TTFTSeconds: 0.3, PromptTokens: 20, CompletionTokens: 5}, 1)
	c.RecordAdded(model.LLMRecord{Label: "openai.LLM", TTFTSeconds: 0.5, PromptTokens: 10}, 2)
	c.RecordAdded(model.EOURecord{EndOfUtteranceDelaySeconds: 0.6}, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("LLM", "openai.LLM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("EOU", "")))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.tokensTotal.WithLabelValues("prompt")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.tokensTotal.WithLabelValues("completion")))
	assert.Equal(t, 4, testutil.CollectAndCount(c.latency))
}

func TestCollector_DroppedAndExports(t *testing.T) {
	c := NewCollector(nil, zaptest.NewLogger(t))

	c.EventDropped("vad_metrics")
	c.EventDropped("vad_metrics")
	c.ExportFinished("a.xlsx", nil, 10*time.Millisecond)
	c.ExportFinished("a.xlsx", errors.New("disk full"), time.Millisecond)
	c.ExportFinished("a.xlsx", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.droppedTotal.WithLabelValues("vad_metrics")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.exportsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exportsTotal.WithLabelValues("error")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil, zaptest.NewLogger(t))
	c.RecordHTTPRequest(http.MethodPost, "/v1/session/events", http.StatusAccepted, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `propal_http_requests_total{method="POST",path="/v1/session/events",status="202"} 1`), body)
}
