package omclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exports Prometheus metrics for the request lifecycle,
// the retry layer and the tier caches. A nil collector records nothing, so
// every call site can invoke it unconditionally.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   *prometheus.GaugeVec

	loginsTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector on the supplied
// registerer, letting tests isolate their metric state.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_requests_total",
				Help: "Total number of catalog API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omclient_request_duration_seconds",
				Help:    "Duration of catalog API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omclient_requests_in_flight",
				Help: "Number of catalog API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_cache_hits_total",
				Help: "Total number of tier cache hits",
			},
			[]string{"tier", "endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_cache_misses_total",
				Help: "Total number of tier cache misses",
			},
			[]string{"tier", "endpoint"},
		),
		cacheSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omclient_cache_size",
				Help: "Current number of entries per cache tier",
			},
			[]string{"tier"},
		),
		loginsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_logins_total",
				Help: "Total number of login exchanges by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omclient_errors_total",
				Help: "Total number of errors surfaced by type",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// RecordRequest records one completed logical call.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCacheHit increments the hit counter for a tier.
func (mc *MetricsCollector) RecordCacheHit(tier, endpoint string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(tier, endpoint).Inc()
}

// RecordCacheMiss increments the miss counter for a tier.
func (mc *MetricsCollector) RecordCacheMiss(tier, endpoint string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(tier, endpoint).Inc()
}

// RecordCacheSize sets the entry-count gauge for a tier.
func (mc *MetricsCollector) RecordCacheSize(tier string, size int) {
	if mc == nil {
		return
	}
	mc.cacheSize.WithLabelValues(tier).Set(float64(size))
}

// RecordLogin counts a login exchange by outcome.
func (mc *MetricsCollector) RecordLogin(success bool) {
	if mc == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	mc.loginsTotal.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
