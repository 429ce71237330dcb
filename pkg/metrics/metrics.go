package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: "surfdash",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0},
		},
		[]string{"verb", "path", "code"},
	)
	sourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "source_fetches_total",
			Subsystem: "surfdash",
			Help:      "Forecast source lookups by source and outcome.",
		},
		[]string{"source", "status", "cached"},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "cache_lookups_total",
			Subsystem: "surfdash",
			Help:      "Cache lookups by category and result.",
		},
		[]string{"category", "result"},
	)
	reportUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "report_updates_total",
			Subsystem: "surfdash",
			Help:      "Surf report refreshes by spot and status.",
		},
		[]string{"spot", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		sourceFetches,
		cacheLookups,
		reportUpdates,
	)
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

// ObserveSourceFetch counts one lookup of a forecast source.
func ObserveSourceFetch(source, status string, cached bool) {
	sourceFetches.WithLabelValues(source, status, strconv.FormatBool(cached)).Inc()
}

// ObserveCacheLookup counts a cache hit, miss or error for a category.
func ObserveCacheLookup(category, result string) {
	cacheLookups.WithLabelValues(category, result).Inc()
}

func ObserveReportUpdate(spot, status string) {
	reportUpdates.WithLabelValues(spot, status).Inc()
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) status() string {
	if s.code == 0 {
		// Unset, will be set to 200 by stdlib.
		return "200"
	}
	return strconv.Itoa(s.code)
}

// LatencyHandler observes the latency of every request by method, route and
// status code. Routes matched by a mux router are labeled by their template
// to keep path cardinality bounded.
func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		verb := r.Method
		path := routePath(r)
		rec := &statusRecorder{ResponseWriter: w}

		// Defer metric observing. Any panics in next are reported as 500 errors
		// and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Since(t).Seconds())
				panic(err)
			}
			ObserveRequestLatency(verb, path, rec.status(), time.Since(t).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	if r.URL != nil {
		return r.URL.Path
	}
	return ""
}
