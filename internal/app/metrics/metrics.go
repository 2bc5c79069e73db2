package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "explorer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "explorer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "explorer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	historicalLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "explorer",
			Subsystem: "history",
			Name:      "lookups_total",
			Help:      "Point-in-time value lookups by outcome.",
		},
		[]string{"lookback", "outcome"},
	)

	aggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "explorer",
			Subsystem: "stats",
			Name:      "aggregations_total",
			Help:      "Interval aggregations by granularity and result.",
		},
		[]string{"interval", "success"},
	)

	aggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "explorer",
			Subsystem: "stats",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of interval aggregations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"interval"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "explorer",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		historicalLookups,
		aggregations,
		aggregationDuration,
		cacheLookups,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics labelled with the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := routePath(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordHistoricalLookup counts a point-in-time lookup. outcome is one of
// "hit", "absent" or "error".
func RecordHistoricalLookup(lookbackDays int, outcome string) {
	historicalLookups.WithLabelValues(strconv.Itoa(lookbackDays), outcome).Inc()
}

// RecordAggregation records an interval aggregation run.
func RecordAggregation(interval string, duration time.Duration, success bool) {
	if interval == "" {
		interval = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	aggregations.WithLabelValues(interval, strconv.FormatBool(success)).Inc()
	aggregationDuration.WithLabelValues(interval).Observe(duration.Seconds())
}

// RecordCacheLookup counts a response cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// routePath prefers the gorilla route template so path parameters do not
// explode label cardinality.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
