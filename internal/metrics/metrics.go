// Package metrics exposes Prometheus metrics for endpoint selection and
// chat turns.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatrelay/internal/models"
)

const namespace = "chatrelay"

var (
	// ProbesTotal counts availability probes by model and outcome.
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Endpoint availability probes by model and result",
		},
		[]string{"model", "result", "status_code"},
	)

	// ProbeLatency tracks probe round-trip time.
	ProbeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_latency_seconds",
			Help:      "Endpoint probe latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"model"},
	)

	// EndpointEventsTotal counts active-endpoint transitions.
	EndpointEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_events_total",
			Help:      "Active endpoint transitions by type",
		},
		[]string{"type"},
	)

	// EndpointActive is 1 while an endpoint is active, 0 otherwise.
	EndpointActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_active",
			Help:      "Whether a model endpoint is currently active",
		},
	)

	// ChatTurnsTotal counts chat turns by backend and reply status.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by backend and reply status",
		},
		[]string{"backend", "status"},
	)

	// ChatTurnDuration tracks end-to-end turn time.
	ChatTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_duration_seconds",
			Help:      "Chat turn duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
)

// Recorder feeds the package metrics. It satisfies selector.Observer and
// services.TurnObserver.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (Recorder) ProbeCompleted(r models.ProbeResult) {
	result := "failure"
	if r.Success {
		result = "success"
	}
	ProbesTotal.WithLabelValues(r.Model, result, strconv.Itoa(r.StatusCode)).Inc()
	ProbeLatency.WithLabelValues(r.Model).Observe(float64(r.LatencyMs) / 1000)
}

func (Recorder) EndpointChanged(e models.EndpointEvent) {
	EndpointEventsTotal.WithLabelValues(e.Type).Inc()
	if e.Type == models.EventEndpointSelected {
		EndpointActive.Set(1)
	} else {
		EndpointActive.Set(0)
	}
}

func (Recorder) TurnCompleted(backend, status string, elapsed time.Duration) {
	ChatTurnsTotal.WithLabelValues(backend, status).Inc()
	ChatTurnDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
