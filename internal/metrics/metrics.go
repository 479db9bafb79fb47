// Package metrics exposes persona state and activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/persona/internal/memory"
)

// Metrics owns a private registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	memories    prometheus.Gauge
	avgStrength prometheus.Gauge
	strong      prometheus.Gauge
	weak        prometheus.Gauge
	day         prometheus.Gauge
	sleepCycles prometheus.Gauge

	chats     *prometheus.CounterVec
	recalls   prometheus.Counter
	recalled  prometheus.Counter
	learned   *prometheus.CounterVec
	events    *prometheus.CounterVec
	llmErrors *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "persona", Name: name, Help: help})
		m.registry.MustRegister(g)
		return g
	}
	m.memories = gauge("memories", "Number of stored memories")
	m.avgStrength = gauge("memory_avg_strength", "Mean total strength of stored memories")
	m.strong = gauge("memories_strong", "Memories with strength above 0.7")
	m.weak = gauge("memories_weak", "Memories with strength below 0.3")
	m.day = gauge("day", "Simulated days lived")
	m.sleepCycles = gauge("sleep_cycles", "Sleep consolidations performed")

	m.chats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona", Name: "chats_total", Help: "Chat turns by result",
	}, []string{"result"})
	m.recalls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "persona", Name: "recalls_total", Help: "Recall queries",
	})
	m.recalled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "persona", Name: "recalled_memories_total", Help: "Memories surfaced by recall",
	})
	m.learned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona", Name: "learned_memories_total", Help: "Memories formed by source",
	}, []string{"source"})
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona", Name: "memory_events_total", Help: "Memory store events by kind",
	}, []string{"kind"})
	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona", Name: "llm_errors_total", Help: "Failed LLM completions by purpose",
	}, []string{"purpose"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona", Name: "http_requests_total", Help: "HTTP requests",
	}, []string{"method", "route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "persona", Name: "http_request_duration_seconds", Help: "HTTP request duration",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"method", "route"})

	m.registry.MustRegister(m.chats, m.recalls, m.recalled, m.learned, m.events, m.llmErrors,
		m.httpRequests, m.httpDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStats updates the memory gauges.
func (m *Metrics) ObserveStats(s memory.Stats) {
	if m == nil {
		return
	}
	m.memories.Set(float64(s.Total))
	m.avgStrength.Set(s.AvgStrength)
	m.strong.Set(float64(s.Strong))
	m.weak.Set(float64(s.Weak))
	m.day.Set(float64(s.Days))
	m.sleepCycles.Set(float64(s.SleepCycles))
}

// Chat counts a chat turn. result is "ok", "ghost" or "error".
func (m *Metrics) Chat(result string) {
	if m == nil {
		return
	}
	m.chats.WithLabelValues(result).Inc()
}

// Recall counts a recall query and the memories it surfaced.
func (m *Metrics) Recall(found int) {
	if m == nil {
		return
	}
	m.recalls.Inc()
	m.recalled.Add(float64(found))
}

// Learned counts memories formed. source is "llm", "fallback" or "direct".
func (m *Metrics) Learned(source string, n int) {
	if m == nil {
		return
	}
	m.learned.WithLabelValues(source).Add(float64(n))
}

// Event counts a memory store event.
func (m *Metrics) Event(e memory.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(e.Kind)).Inc()
}

// LLMError counts a failed completion. purpose is "chat" or "learn".
func (m *Metrics) LLMError(purpose string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(purpose).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
