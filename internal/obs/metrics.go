package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	archiveExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archive_exports_total",
		Help: "Completed archive exports.",
	})

	archiveImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_imports_total",
			Help: "Archive import attempts by outcome.",
		},
		[]string{"outcome"},
	)

	importedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_imported_rows_total",
			Help: "Rows written by archive imports, by collection.",
		},
		[]string{"collection"},
	)
)

// Init registers all service metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		archiveExportsTotal,
		archiveImportsTotal,
		importedRowsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountExport records one completed export.
func CountExport() { archiveExportsTotal.Inc() }

// CountImport records an import attempt outcome ("ok" or "error").
func CountImport(outcome string) { archiveImportsTotal.WithLabelValues(outcome).Inc() }

// CountImportedRows records rows written for one collection during import.
func CountImportedRows(collection string, n int) {
	if n > 0 {
		importedRowsTotal.WithLabelValues(collection).Add(float64(n))
	}
}

// CanonicalPath collapses per-row URL segments so metric labels stay bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, prefix := range []string{"/v1/decks/", "/v1/opponent-decks/", "/v1/results/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		if !strings.Contains(rest, "/") {
			return prefix + ":id"
		}
	}
	return path
}

// Instrument wraps a handler with RPS, latency and in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
