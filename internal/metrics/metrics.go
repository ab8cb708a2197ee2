package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's collectors on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	RequestsSubmitted prometheus.Counter
	RequestsAssigned  prometheus.Counter
	StatusChanges     *prometheus.CounterVec
	SignUps           *prometheus.CounterVec
	OutboxPublished   prometheus.Counter
	OutboxFailed      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "publicspace_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "publicspace_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
		RequestsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "publicspace_requests_submitted_total",
			Help: "Maintenance requests submitted by citizens",
		}),
		RequestsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "publicspace_requests_assigned_total",
			Help: "Maintenance requests assigned to a department",
		}),
		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "publicspace_request_status_changes_total",
			Help: "Request status transitions by target status",
		}, []string{"status"}),
		SignUps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "publicspace_signups_total",
			Help: "Registered users by role",
		}, []string{"role"}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "publicspace_outbox_published_total",
			Help: "Outbox messages published to the broker",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "publicspace_outbox_failed_total",
			Help: "Outbox publish attempts that failed",
		}),
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, start time.Time) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
