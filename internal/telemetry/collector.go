// Package telemetry exposes recorder and ingest activity as Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "propal"

// Collector implements recorder.Observer on top of Prometheus vectors.
type Collector struct {
	recordsTotal   *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	exportsTotal   *prometheus.CounterVec
	exportDuration prometheus.Histogram
	latency        *prometheus.HistogramVec
	tokensTotal    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector registers the propal metrics with reg. A nil reg uses a
// fresh registry.
func NewCollector(reg *prometheus.Registry, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)

	c := &Collector{
		gatherer: reg,
		logger:   logger.With(zap.String("component", "telemetry")),
	}

	c.recordsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_total",
			Help:      "Total number of telemetry records stored",
		},
		[]string{"kind", "label"},
	)

	c.droppedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_events_total",
			Help:      "Total number of metrics events of unsupported types",
		},
		[]string{"type"},
	)

	c.exportsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exports_total",
			Help:      "Total number of report exports",
		},
		[]string{"status"},
	)

	c.exportDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "export_duration_seconds",
			Help:      "Report export duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	c.latency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pipeline_latency_seconds",
			Help:      "Voice pipeline latencies reported by the agent session",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 1.5, 2, 3, 5},
		},
		[]string{"kind", "series"},
	)

	c.tokensTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_tokens_total",
			Help:      "Total number of LLM tokens",
		},
		[]string{"type"}, // prompt, completion
	)

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return c
}

// RecordAdded counts rec and observes its latency series.
func (c *Collector) RecordAdded(rec model.Record, _ int) {
	kind := rec.Kind().String()
	switch r := rec.(type) {
	case model.LLMRecord:
		c.recordsTotal.WithLabelValues(kind, r.Label).Inc()
		c.latency.WithLabelValues(kind, "ttft").Observe(r.TTFTSeconds)
		c.latency.WithLabelValues(kind, "duration").Observe(r.DurationSeconds)
		c.tokensTotal.WithLabelValues("prompt").Add(float64(r.PromptTokens))
		c.tokensTotal.WithLabelValues("completion").Add(float64(r.CompletionTokens))
	case model.TTSRecord:
		c.recordsTotal.WithLabelValues(kind, r.Label).Inc()
		c.latency.WithLabelValues(kind, "ttfb").Observe(r.TTFBSeconds)
		c.latency.WithLabelValues(kind, "duration").Observe(r.DurationSeconds)
	case model.STTRecord:
		c.recordsTotal.WithLabelValues(kind, r.Label).Inc()
		c.latency.WithLabelValues(kind, "duration").Observe(r.DurationSeconds)
	case model.EOURecord:
		c.recordsTotal.WithLabelValues(kind, "").Inc()
		c.latency.WithLabelValues(kind, "end_of_utterance_delay").Observe(r.EndOfUtteranceDelaySeconds)
		c.latency.WithLabelValues(kind, "transcription_delay").Observe(r.TranscriptionDelaySeconds)
	}
}

// EventDropped counts an unsupported metrics event.
func (c *Collector) EventDropped(wireType string) {
	c.droppedTotal.WithLabelValues(wireType).Inc()
}

// ExportFinished counts an export attempt.
func (c *Collector) ExportFinished(_ string, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.exportsTotal.WithLabelValues(status).Inc()
	c.exportDuration.Observe(took.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, took time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(c.logger),
	})
}
