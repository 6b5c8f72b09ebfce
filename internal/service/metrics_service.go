package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academy-scheduling/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and the generators.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	sessionsTotal     *prometheus.CounterVec
	chargesTotal      *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	feeCacheLookups   *prometheus.CounterVec
	feeCacheHitRatio  prometheus.Gauge
	generatorFailures *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	sessionsGenerated    uint64
	sessionsSkipped      uint64
	chargesCreated       uint64
	chargesSkipped       uint64
	conflictsDetected    uint64
	feeCacheHits         uint64
	feeCacheMisses       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sessionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_sessions_total",
		Help: "Class sessions processed by the materializer",
	}, []string{"outcome"})

	chargesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_charges_total",
		Help: "Charges processed by the monthly generator",
	}, []string{"outcome", "reason"})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_total",
		Help: "Schedule conflicts detected per resource kind",
	}, []string{"resource", "kind"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_job_duration_seconds",
		Help:    "Duration of scheduled jobs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job", "status"})

	feeCacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_fee_cache_lookups_total",
		Help: "Group fee cache lookups",
	}, []string{"result"})

	feeCacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "billing_fee_cache_hit_ratio",
		Help: "Ratio of group fee cache hits to lookups",
	})

	generatorFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generator_failures_total",
		Help: "Generator invocations that failed, by error code",
	}, []string{"generator", "code"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sessionsTotal, chargesTotal, conflictsTotal, jobDuration, feeCacheLookups, feeCacheHitRatio, generatorFailures, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		sessionsTotal:     sessionsTotal,
		chargesTotal:      chargesTotal,
		conflictsTotal:    conflictsTotal,
		jobDuration:       jobDuration,
		feeCacheLookups:   feeCacheLookups,
		feeCacheHitRatio:  feeCacheHitRatio,
		generatorFailures: generatorFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordMaterialization counts generated and skipped sessions.
func (m *MetricsService) RecordMaterialization(generated, skipped int) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues("generated").Add(float64(generated))
	m.sessionsTotal.WithLabelValues("skipped").Add(float64(skipped))
	atomic.AddUint64(&m.sessionsGenerated, uint64(generated))
	atomic.AddUint64(&m.sessionsSkipped, uint64(skipped))
}

// RecordChargeGeneration counts created charges and skips by reason.
func (m *MetricsService) RecordChargeGeneration(created int, skipReasons map[string]int) {
	if m == nil {
		return
	}
	m.chargesTotal.WithLabelValues("created", "").Add(float64(created))
	atomic.AddUint64(&m.chargesCreated, uint64(created))
	for reason, count := range skipReasons {
		m.chargesTotal.WithLabelValues("skipped", reason).Add(float64(count))
		atomic.AddUint64(&m.chargesSkipped, uint64(count))
	}
}

// RecordConflict counts a detected conflict.
func (m *MetricsService) RecordConflict(resource, kind string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(resource, kind).Inc()
	atomic.AddUint64(&m.conflictsDetected, 1)
}

// RecordFeeLookup records a fee cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordFeeLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.feeCacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.feeCacheHits, 1)
	} else {
		m.feeCacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.feeCacheMisses, 1)
	}
	hits := atomic.LoadUint64(&m.feeCacheHits)
	total := hits + atomic.LoadUint64(&m.feeCacheMisses)
	if total > 0 {
		m.feeCacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordGeneratorFailure counts a failed generator invocation.
func (m *MetricsService) RecordGeneratorFailure(generator, code string) {
	if m == nil {
		return
	}
	m.generatorFailures.WithLabelValues(generator, code).Inc()
}

// ObserveJob records how long a scheduled job took.
func (m *MetricsService) ObserveJob(job string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobDuration.WithLabelValues(job, status).Observe(duration.Seconds())
}

// Snapshot returns aggregated counters suitable for a JSON summary endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.feeCacheHits)
	misses := atomic.LoadUint64(&m.feeCacheMisses)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return dto.MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SessionsGenerated:        atomic.LoadUint64(&m.sessionsGenerated),
		SessionsSkipped:          atomic.LoadUint64(&m.sessionsSkipped),
		ChargesCreated:           atomic.LoadUint64(&m.chargesCreated),
		ChargesSkipped:           atomic.LoadUint64(&m.chargesSkipped),
		ConflictsDetected:        atomic.LoadUint64(&m.conflictsDetected),
		FeeCacheHitRatio:         ratio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
