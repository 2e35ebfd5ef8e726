package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects engine-level counters and timings. Each instance owns
// its registry so tests can construct one without colliding with the
// process-global default.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal        prometheus.Counter
	buildFailures      prometheus.Counter
	enrichmentFailures prometheus.Counter
	buildDuration      prometheus.Histogram
	graphNodes         prometheus.Histogram
	graphEdges         prometheus.Histogram
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		buildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citation_graph_builds_total",
			Help: "Completed citation graph builds.",
		}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citation_graph_build_failures_total",
			Help: "Graph builds aborted by storage failures.",
		}),
		enrichmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "citation_graph_enrichment_failures_total",
			Help: "Whole-batch placeholder enrichment failures.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citation_graph_build_duration_seconds",
			Help:    "Wall time of one graph build.",
			Buckets: prometheus.DefBuckets,
		}),
		graphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citation_graph_nodes",
			Help:    "Node count of completed graphs.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		}),
		graphEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "citation_graph_edges",
			Help:    "Edge count of completed graphs.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8),
		}),
	}

	registry.MustRegister(
		m.buildsTotal,
		m.buildFailures,
		m.enrichmentFailures,
		m.buildDuration,
		m.graphNodes,
		m.graphEdges,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Timer observes a duration on Stop.
type Timer struct {
	start   time.Time
	observe func(time.Duration)
}

// Stop records the elapsed time.
func (t Timer) Stop() {
	t.observe(time.Since(t.start))
}

// StartBuildTimer times one graph build.
func (m *Metrics) StartBuildTimer() Timer {
	return Timer{
		start: time.Now(),
		observe: func(d time.Duration) {
			m.buildDuration.Observe(d.Seconds())
		},
	}
}

// BuildCompleted records a successful build and its graph size.
func (m *Metrics) BuildCompleted(nodes, edges int) {
	m.buildsTotal.Inc()
	m.graphNodes.Observe(float64(nodes))
	m.graphEdges.Observe(float64(edges))
}

// BuildFailed records a fatal build failure.
func (m *Metrics) BuildFailed() {
	m.buildFailures.Inc()
}

// EnrichmentFailed records a whole-batch enrichment failure.
func (m *Metrics) EnrichmentFailed() {
	m.enrichmentFailures.Inc()
}
