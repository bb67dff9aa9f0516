package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects the dashboard's operational metrics.
type Recorder interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	ObserveUpstream(operation string, duration time.Duration, err error)
	IncCacheHits()
	IncCacheMisses()
	IncStateChanges()
	IncNotifications(result string)
}

type prometheusRecorder struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	stateChanges     prometheus.Counter
	notifications    *prometheus.CounterVec
}

// New registers the dashboard metrics with reg.
func New(reg prometheus.Registerer) Recorder {
	f := promauto.With(reg)
	return &prometheusRecorder{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringer_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringer_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		upstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringer_upstream_duration_seconds",
			Help:    "Status API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		upstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringer_upstream_errors_total",
			Help: "Total number of failed status API calls",
		}, []string{"operation"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "ringer_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "ringer_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		stateChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "ringer_device_state_changes_total",
			Help: "Plug state changes detected by the watcher",
		}),

		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ringer_notifications_total",
			Help: "Push notifications by result",
		}, []string{"result"}),
	}
}

func (m *prometheusRecorder) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *prometheusRecorder) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *prometheusRecorder) ObserveUpstream(operation string, duration time.Duration, err error) {
	m.upstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(operation).Inc()
	}
}

func (m *prometheusRecorder) IncCacheHits()   { m.cacheHits.Inc() }
func (m *prometheusRecorder) IncCacheMisses() { m.cacheMisses.Inc() }
func (m *prometheusRecorder) IncStateChanges() {
	m.stateChanges.Inc()
}

func (m *prometheusRecorder) IncNotifications(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type noopRecorder struct{}

func (noopRecorder) IncRequestsTotal(_ string, _ int)                   {}
func (noopRecorder) ObserveRequestDuration(_ string, _ time.Duration)   {}
func (noopRecorder) ObserveUpstream(_ string, _ time.Duration, _ error) {}
func (noopRecorder) IncCacheHits()                                      {}
func (noopRecorder) IncCacheMisses()                                    {}
func (noopRecorder) IncStateChanges()                                   {}
func (noopRecorder) IncNotifications(_ string)                          {}

// Middleware records request counts and latency per route template.
func Middleware(rec Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		rec.IncRequestsTotal(endpoint, c.Writer.Status())
		rec.ObserveRequestDuration(endpoint, time.Since(start))
	}
}
