// Package metrics groups the Prometheus instruments for the voice session
// pipeline. All helpers are nil-safe so instrumented code never has to
// check whether metrics are enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument plus the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	ToolCalls         *prometheus.CounterVec
	AudioChunks       *prometheus.CounterVec
	FirstAudioLatency prometheus.Histogram
}

// New builds a metrics set on a private registry so multiple instances can
// coexist in one process.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active realtime voice sessions.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Inbound session events by kind.",
		}, []string{"event"}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool call results by tool and outcome.",
		}, []string{"tool", "outcome"}),
		AudioChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_total",
			Help:      "Audio chunks by direction.",
		}, []string{"direction"}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency from session start to the first model audio chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000, 5000},
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted bumps the active session gauge.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

// SessionEnded drops the active session gauge.
func (m *Metrics) SessionEnded() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

// Event counts one inbound session event.
func (m *Metrics) Event(kind string) {
	if m != nil {
		m.SessionEvents.WithLabelValues(kind).Inc()
	}
}

// ToolCall counts one completed tool call.
func (m *Metrics) ToolCall(tool string, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// AudioSent counts one outbound capture chunk.
func (m *Metrics) AudioSent() {
	if m != nil {
		m.AudioChunks.WithLabelValues("out").Inc()
	}
}

// AudioReceived counts one inbound model audio chunk.
func (m *Metrics) AudioReceived() {
	if m != nil {
		m.AudioChunks.WithLabelValues("in").Inc()
	}
}

// ObserveFirstAudioLatency records time-to-first-audio for a session.
func (m *Metrics) ObserveFirstAudioLatency(d time.Duration) {
	if m != nil {
		m.FirstAudioLatency.Observe(float64(d.Milliseconds()))
	}
}
