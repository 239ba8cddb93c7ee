package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements ports.Metrics and holds the HTTP request collectors.
type Prometheus struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	cacheRequests    *prometheus.CounterVec
	cacheExpired     prometheus.Counter
	cacheInvalidated prometheus.Counter
	preloadJobs      *prometheus.CounterVec
	preloadDuration  prometheus.Histogram
	preloadQueued    prometheus.Gauge
	warmPasses       *prometheus.CounterVec
	navigations      *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "The HTTP request latencies in seconds",
			},
			[]string{"method", "endpoint"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_requests_total",
				Help: "Domain cache lookups by family and result",
			},
			[]string{"family", "result"},
		),
		cacheExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_expired_total",
			Help: "Entries evicted lazily on read after their TTL elapsed",
		}),
		cacheInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_invalidated_total",
			Help: "Entries removed by explicit invalidation",
		}),
		preloadJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preload_jobs_total",
				Help: "Preload jobs run, by outcome",
			},
			[]string{"outcome"},
		),
		preloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "preload_job_duration_seconds",
			Help:    "Preload loader latency",
			Buckets: prometheus.DefBuckets,
		}),
		preloadQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "preload_jobs_queued",
			Help: "Preload jobs waiting across all sessions",
		}),
		warmPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_warm_passes_total",
				Help: "Cache warm passes by role and outcome",
			},
			[]string{"role", "outcome"},
		),
		navigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navigations_total",
				Help: "Tracked screen transitions",
			},
			[]string{"screen"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Live user sessions",
		}),
	}
	reg.MustRegister(
		p.RequestsTotal,
		p.RequestDuration,
		p.cacheRequests,
		p.cacheExpired,
		p.cacheInvalidated,
		p.preloadJobs,
		p.preloadDuration,
		p.preloadQueued,
		p.warmPasses,
		p.navigations,
		p.activeSessions,
	)
	return p
}

func (p *Prometheus) CacheHit(family string) {
	p.cacheRequests.WithLabelValues(family, "hit").Inc()
}

func (p *Prometheus) CacheMiss(family string) {
	p.cacheRequests.WithLabelValues(family, "miss").Inc()
}

func (p *Prometheus) CacheExpired() {
	p.cacheExpired.Inc()
}

func (p *Prometheus) CacheInvalidated(n int) {
	if n > 0 {
		p.cacheInvalidated.Add(float64(n))
	}
}

func (p *Prometheus) PreloadJob(outcome string, d time.Duration) {
	p.preloadJobs.WithLabelValues(outcome).Inc()
	p.preloadDuration.Observe(d.Seconds())
}

func (p *Prometheus) PreloadQueueDepth(delta int) {
	p.preloadQueued.Add(float64(delta))
}

func (p *Prometheus) WarmPass(role, outcome string) {
	p.warmPasses.WithLabelValues(role, outcome).Inc()
}

func (p *Prometheus) Navigation(screen string) {
	p.navigations.WithLabelValues(screen).Inc()
}

func (p *Prometheus) ActiveSessions(n int) {
	p.activeSessions.Set(float64(n))
}

func (p *Prometheus) PreloadQueuedGauge() prometheus.Gauge {
	return p.preloadQueued
}

func (p *Prometheus) ActiveSessionsGauge() prometheus.Gauge {
	return p.activeSessions
}
