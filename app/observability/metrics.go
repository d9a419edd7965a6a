// Package observability defines the Prometheus metrics of the blog.
//
// Each Metrics owns a private registry, so tests and multiple App
// instances never collide on the global one. It is exposed on /metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "postcomm"

// Metrics holds every collector of the application.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests.
	// Labels: method, route (mux path template), status
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency.
	// Labels: method, route
	RequestDurationSeconds *prometheus.HistogramVec

	// LoginsTotal counts login attempts.
	// Labels: result (success, failure)
	LoginsTotal *prometheus.CounterVec

	// UsersRegisteredTotal counts successful registrations.
	UsersRegisteredTotal prometheus.Counter

	// PostsCreatedTotal counts created posts.
	PostsCreatedTotal prometheus.Counter

	// PostsDeletedTotal counts deleted posts.
	PostsDeletedTotal prometheus.Counter

	// CommentsCreatedTotal counts created comments.
	CommentsCreatedTotal prometheus.Counter

	// PermissionDeniedTotal counts rejected attempts to act on another user's content.
	PermissionDeniedTotal prometheus.Counter
}

// NewMetrics creates the metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		UsersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "users_registered_total",
			Help:      "Users registered",
		}),
		PostsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "blog",
			Name:      "posts_created_total",
			Help:      "Posts created",
		}),
		PostsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "blog",
			Name:      "posts_deleted_total",
			Help:      "Posts deleted",
		}),
		CommentsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "blog",
			Name:      "comments_created_total",
			Help:      "Comments created",
		}),
		PermissionDeniedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "blog",
			Name:      "permission_denied_total",
			Help:      "Rejected attempts to modify another user's content",
		}),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoginSucceeded records a successful login
func (m *Metrics) LoginSucceeded() {
	m.LoginsTotal.WithLabelValues("success").Inc()
}

// LoginFailed records a rejected login
func (m *Metrics) LoginFailed() {
	m.LoginsTotal.WithLabelValues("failure").Inc()
}
