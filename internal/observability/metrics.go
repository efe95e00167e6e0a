package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the fetch pipelines and the remote client.
// It implements live.Observer and providers.RequestObserver.
type Metrics struct {
	FetchesStarted   *prometheus.CounterVec // labels: pipeline
	FetchesDelivered *prometheus.CounterVec // labels: pipeline, outcome={success,failure}
	FetchesDropped   *prometheus.CounterVec // labels: pipeline
	Generation       *prometheus.GaugeVec   // labels: pipeline

	RemoteRequests *prometheus.CounterVec   // labels: endpoint, result={ok,empty,error}
	RemoteDuration *prometheus.HistogramVec // labels: endpoint

	ScheduledRefreshes *prometheus.CounterVec // labels: result={started,skipped,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchesStarted,
		m.FetchesDelivered,
		m.FetchesDropped,
		m.Generation,
		m.RemoteRequests,
		m.RemoteDuration,
		m.ScheduledRefreshes,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunny_weather",
			Name:      "fetches_started_total",
			Help:      "Fetches started by a pipeline push.",
		}, []string{"pipeline"}),
		FetchesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunny_weather",
			Name:      "fetches_delivered_total",
			Help:      "Fetch results published to subscribers, by outcome.",
		}, []string{"pipeline", "outcome"}),
		FetchesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunny_weather",
			Name:      "fetches_dropped_total",
			Help:      "Fetch results discarded because a newer key was pushed.",
		}, []string{"pipeline"}),
		Generation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sunny_weather",
			Name:      "pipeline_generation",
			Help:      "Latest generation started by a pipeline.",
		}, []string{"pipeline"}),
		RemoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunny_weather",
			Name:      "remote_requests_total",
			Help:      "Caiyun API requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		RemoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sunny_weather",
			Name:      "remote_request_duration_seconds",
			Help:      "Caiyun API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		ScheduledRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sunny_weather",
			Name:      "scheduled_refreshes_total",
			Help:      "Periodic refresh runs by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) FetchStarted(pipeline string, generation uint64) {
	m.FetchesStarted.WithLabelValues(pipeline).Inc()
	m.Generation.WithLabelValues(pipeline).Set(float64(generation))
}

func (m *Metrics) FetchDelivered(pipeline string, _ uint64, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.FetchesDelivered.WithLabelValues(pipeline, outcome).Inc()
}

func (m *Metrics) FetchDropped(pipeline string, _ uint64) {
	m.FetchesDropped.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) RequestCompleted(endpoint, result string, elapsed time.Duration) {
	m.RemoteRequests.WithLabelValues(endpoint, result).Inc()
	m.RemoteDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RefreshScheduled counts one periodic refresh run.
func (m *Metrics) RefreshScheduled(result string) {
	m.ScheduledRefreshes.WithLabelValues(result).Inc()
}
