package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics.
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
)

// Auth-domain metrics.
var (
	registrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Successful registrations.",
	})

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Successful logins by provider.",
		},
		[]string{"provider"},
	)

	rotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Successful refresh-token rotations.",
	})

	replayRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_replay_rejected_total",
		Help: "Refresh attempts rejected because the token was already revoked.",
	})

	massRevocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_mass_revocations_total",
			Help: "Account-wide credential revocations by reason.",
		},
		[]string{"reason"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		registrationsTotal, loginsTotal, rotationsTotal,
		replayRejectedTotal, massRevocationsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func CountRegistration()         { registrationsTotal.Inc() }
func CountLogin(provider string) { loginsTotal.WithLabelValues(provider).Inc() }
func CountRotation()             { rotationsTotal.Inc() }
func CountReplayRejected()       { replayRejectedTotal.Inc() }

// CountMassRevocation records an account-wide invalidation ("logout",
// "password_reset", "replay_cascade").
func CountMassRevocation(reason string) { massRevocationsTotal.WithLabelValues(reason).Inc() }

// Instrument wraps a handler with RPS/latency/in-flight measurement.
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

// CanonicalPath collapses per-resource path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	const sessions = "/v1/users/me/sessions/"
	if strings.HasPrefix(path, sessions) && !strings.Contains(path[len(sessions):], "/") {
		return sessions + ":id"
	}
	return path
}

// statusWriter records the response code written downstream.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
