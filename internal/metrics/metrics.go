// metrics — коллекторы Prometheus сервиса и HTTP-мидлвар для них.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Значения метки result.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics объединяет коллекторы сервиса. Нулевой *Metrics безопасен:
// все методы становятся no-op.
type Metrics struct {
	authOps       *prometheus.CounterVec
	auditFailures prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Auth operations by name and result.",
		}, []string{"op", "result"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_audit_failures_total",
			Help: "Login audit records that could not be written.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.authOps, m.auditFailures, m.httpRequests, m.httpDuration)

	return m
}

// AuthOp учитывает завершение операции op.
func (m *Metrics) AuthOp(op string, err error) {
	if m == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	m.authOps.WithLabelValues(op, result).Inc()
}

// AuditFailure учитывает неудачную запись в журнал входов.
func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}

	m.auditFailures.Inc()
}

// Middleware считает запросы и их длительность по шаблону маршрута chi,
// чтобы кардинальность меток не зависела от параметров пути.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(snap.Code)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(snap.Duration.Seconds())
	})
}
