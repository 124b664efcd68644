package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "iotsim"

// Metrics holds the simulator's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	sessionsActive   *prometheus.GaugeVec
	sessionDuration  *prometheus.HistogramVec
	modelChanges     *prometheus.CounterVec
	requestsSent     *prometheus.CounterVec
	responses        *prometheus.CounterVec
	observerChanges  *prometheus.CounterVec
	resources        prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Automation sessions started, by kind.",
		}, []string{"kind"}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Automation sessions finished, by kind and final state.",
		}, []string{"kind", "state"}),
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Automation sessions currently running, by kind.",
		}, []string{"kind"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of finished automation sessions.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"kind"}),
		modelChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_changes_total",
			Help:      "Changes applied to hosted resource models, by uri.",
		}, []string{"uri"}),
		requestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_sent_total",
			Help:      "Automatic requests dispatched, by method.",
		}, []string{"method"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses to automatic requests, by method and outcome.",
		}, []string{"method", "outcome"}),
		observerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_changes_total",
			Help:      "Observer registrations and removals on hosted resources.",
		}, []string{"status"}),
		resources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resources_hosted",
			Help:      "Resources currently hosted by this simulator.",
		}),
	}

	reg.MustRegister(
		m.sessionsStarted,
		m.sessionsFinished,
		m.sessionsActive,
		m.sessionDuration,
		m.modelChanges,
		m.requestsSent,
		m.responses,
		m.observerChanges,
		m.resources,
	)
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler serves the registry for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// SetResources records how many resources are hosted.
func (m *Metrics) SetResources(n int) {
	m.resources.Set(float64(n))
}

func (m *Metrics) sessionStarted(kind string) {
	m.sessionsStarted.WithLabelValues(kind).Inc()
	m.sessionsActive.WithLabelValues(kind).Inc()
}

func (m *Metrics) sessionFinished(kind, state string, d time.Duration) {
	m.sessionsFinished.WithLabelValues(kind, state).Inc()
	m.sessionsActive.WithLabelValues(kind).Dec()
	m.sessionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// Response outcomes.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

func (m *Metrics) response(method string, code int, err error) {
	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeFailed
	case code < 200 || code >= 300:
		outcome = outcomeRejected
	}
	m.responses.WithLabelValues(method, outcome).Inc()
}
