package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters for one run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	requests      *prometheus.CounterVec
	retries       *prometheus.CounterVec
	records       *prometheus.CounterVec
	turns         *prometheus.CounterVec
	streamEvents  *prometheus.CounterVec
	skippedFrames prometheus.Counter
	turnDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleet_api",
		Name:      "requests_total",
		Help:      "Fleet API requests by resource and HTTP status code",
	}, []string{"resource", "code"})
	m.retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleet_api",
		Name:      "retries_total",
		Help:      "Fleet API requests retried after a transient failure",
	}, []string{"resource"})
	m.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleet",
		Name:      "records_fetched_total",
		Help:      "Records kept after fetching and date filtering",
	}, []string{"resource"})
	m.turns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llm",
		Name:      "turns_total",
		Help:      "Conversation turns by outcome",
	}, []string{"outcome"})
	m.streamEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llm",
		Name:      "stream_events_total",
		Help:      "Parsed server-sent events by type",
	}, []string{"type"})
	m.skippedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llm",
		Name:      "stream_frames_skipped_total",
		Help:      "Stream frames that could not be decoded",
	})
	m.turnDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "llm",
		Name:      "turn_duration_seconds",
		Help:      "Wall time of one conversation turn",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	m.reg.MustRegister(
		m.requests, m.retries, m.records,
		m.turns, m.streamEvents, m.skippedFrames, m.turnDuration,
	)
	return m
}

func (m *Metrics) ObserveRequest(resource string, code int) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = fmt.Sprintf("%d", code)
	}
	m.requests.WithLabelValues(resource, label).Inc()
}

func (m *Metrics) IncRetry(resource string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(resource).Inc()
}

func (m *Metrics) AddRecords(resource string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(resource).Add(float64(n))
}

func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(d.Seconds())
}

func (m *Metrics) IncStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncSkippedFrame() {
	if m == nil {
		return
	}
	m.skippedFrames.Inc()
}

// Dump returns a human-readable snapshot of counters (for logging).
// Histograms are reported as their sample count and sum.
func (m *Metrics) Dump() string {
	if m == nil {
		return ""
	}
	families, err := m.reg.Gather()
	if err != nil {
		return ""
	}
	var out []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			lk := strings.Join(pairs, ",")
			switch {
			case metric.GetCounter() != nil:
				out = append(out, fmt.Sprintf("%s{%s} %g", mf.GetName(), lk, metric.GetCounter().GetValue()))
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				out = append(out, fmt.Sprintf("%s_count{%s} %d", mf.GetName(), lk, h.GetSampleCount()))
				out = append(out, fmt.Sprintf("%s_sum{%s} %g", mf.GetName(), lk, h.GetSampleSum()))
			}
		}
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

// WriteTextfile writes the registry in the Prometheus text format, atomically,
// for a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
