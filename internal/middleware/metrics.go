package middleware

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records request counts and latency on the given registerer.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskscribe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskscribe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel collapses ids so label cardinality stays bounded.
func routeLabel(p string) string {
	p = path.Clean(p)
	switch {
	case p == "/health", p == "/metrics", p == "/api/tasks",
		p == "/api/auth/register", p == "/api/auth/login", p == "/api/auth/me":
		return p
	case strings.HasPrefix(p, "/api/tasks/"):
		return "/api/tasks/{id}"
	default:
		return "other"
	}
}
