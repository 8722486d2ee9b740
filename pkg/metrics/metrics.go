// Package metrics exports allocation, cache and HTTP events as Prometheus
// metrics. A *Metrics implements every hook interface of the observability
// package and is registered by the binary at startup.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/boothplan/pkg/observability"
)

const namespace = "boothplan"

// Run outcomes used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// LatencyBuckets spans a few milliseconds for small runs up to the tens of
// seconds a full event floor plan can take.
var LatencyBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the collectors. The zero value is not usable, use New.
type Metrics struct {
	runs          *prometheus.CounterVec
	placed        *prometheus.CounterVec
	skipped       prometheus.Counter
	runDuration   prometheus.Histogram
	lastPlaced    prometheus.Gauge
	cacheEvents   *prometheus.CounterVec
	cacheBytes    prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// New creates the collectors and registers them with reg. It panics when a
// collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "allocation", Name: "runs_total",
			Help: "Allocation runs by outcome.",
		}, []string{"status"}),
		placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "allocation", Name: "placed_total",
			Help: "Projects placed, by map and cluster.",
		}, []string{"map", "cluster"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "allocation", Name: "skipped_total",
			Help: "Projects no cluster could take.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "allocation", Name: "run_duration_seconds",
			Help:    "Wall time of allocation runs.",
			Buckets: LatencyBuckets,
		}),
		lastPlaced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "allocation", Name: "last_run_placed",
			Help: "Projects placed by the most recent successful run.",
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "events_total",
			Help: "Result cache hits, misses and writes.",
		}, []string{"type", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "written_bytes_total",
			Help: "Bytes written to the result cache.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: LatencyBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(
		m.runs, m.placed, m.skipped, m.runDuration, m.lastPlaced,
		m.cacheEvents, m.cacheBytes,
		m.httpRequests, m.httpDurations, m.inFlight,
	)
	return m
}

// Install registers m as the process-wide allocation, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetAllocationHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// =============================================================================
// observability.AllocationHooks
// =============================================================================

func (m *Metrics) OnRunStart(context.Context, string, int, int) {}

func (m *Metrics) OnPlaced(_ context.Context, _, mapID, cluster string, _ float64) {
	m.placed.WithLabelValues(mapID, cluster).Inc()
}

func (m *Metrics) OnSkipped(context.Context, string) { m.skipped.Inc() }

func (m *Metrics) OnRunComplete(_ context.Context, _ string, placed, _ int, d time.Duration, err error) {
	if err != nil {
		m.runs.WithLabelValues(StatusError).Inc()
		return
	}
	m.runs.WithLabelValues(StatusOK).Inc()
	m.runDuration.Observe(d.Seconds())
	m.lastPlaced.Set(float64(placed))
}

// =============================================================================
// observability.CacheHooks
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

// =============================================================================
// observability.HTTPHooks
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string) { m.inFlight.Inc() }

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.inFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.AllocationHooks = (*Metrics)(nil)
	_ observability.CacheHooks      = (*Metrics)(nil)
	_ observability.HTTPHooks       = (*Metrics)(nil)
)
