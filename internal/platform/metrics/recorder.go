package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nba_stats"

// Cache read states reported by ObserveCacheRead.
const (
	CacheCold         = "cold"
	CacheFresh        = "fresh"
	CacheStale        = "stale"
	CacheNeedsRefresh = "needs_refresh"
)

// Recorder owns a private Prometheus registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	cacheReads    *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	refreshJobs   *prometheus.CounterVec
	queueRejected prometheus.Counter
	queueDepth    prometheus.Gauge
	schedulerRuns *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_cache_reads_total",
			Help:      "Stats reads by cache state.",
		}, []string{"state"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetches_total",
			Help:      "Upstream stats fetches by result.",
		}, []string{"result"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Upstream stats fetch latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		refreshJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_jobs_total",
			Help:      "Background refresh jobs by result.",
		}, []string{"result"}),
		queueRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_queue_rejected_total",
			Help:      "Refresh requests rejected because the queue was full.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_queue_depth",
			Help:      "Player ids waiting in the refresh queue.",
		}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_scheduler_runs_total",
			Help:      "Stale sweep runs by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpLatency,
		r.cacheReads,
		r.fetches,
		r.fetchLatency,
		r.refreshJobs,
		r.queueRejected,
		r.queueDepth,
		r.schedulerRuns,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Recorder) ObserveCacheRead(state string) {
	if r == nil {
		return
	}
	r.cacheReads.WithLabelValues(state).Inc()
}

func (r *Recorder) ObserveFetch(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(resultLabel(err)).Inc()
	r.fetchLatency.Observe(duration.Seconds())
}

func (r *Recorder) ObserveRefreshJob(err error) {
	if r == nil {
		return
	}
	r.refreshJobs.WithLabelValues(resultLabel(err)).Inc()
}

func (r *Recorder) ObserveQueueRejected() {
	if r == nil {
		return
	}
	r.queueRejected.Inc()
}

func (r *Recorder) SetQueueDepth(depth int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(depth))
}

func (r *Recorder) ObserveSchedulerRun(err error) {
	if r == nil {
		return
	}
	r.schedulerRuns.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
