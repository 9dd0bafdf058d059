// Package observability builds the portal's logger and Prometheus collectors.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kabar"

// Metrics groups the portal's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	toasts   *prometheus.CounterVec
	comments prometheus.Counter
}

// NewMetrics registers collectors. visitors, when non-nil, backs the live
// visitor gauge.
func NewMetrics(visitors func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_requests_total",
			Help:      "Page and fragment requests by page id and status code.",
		}, []string{"page", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by page id.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"page"}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toasts_shown_total",
			Help:      "Toasts shown to visitors by kind.",
		}, []string{"kind"}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_posted_total",
			Help:      "Comments accepted across all articles.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.toasts,
		m.comments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if visitors != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_visitors",
			Help:      "Visitor states currently held in memory.",
		}, func() float64 { return float64(visitors()) }))
	}
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(page string, status int, d time.Duration) {
	if page == "" {
		page = "other"
	}
	m.requests.WithLabelValues(page, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(page).Observe(d.Seconds())
}

// ToastShown counts a toast of kind.
func (m *Metrics) ToastShown(kind string) { m.toasts.WithLabelValues(kind).Inc() }

// CommentPosted counts an accepted comment.
func (m *Metrics) CommentPosted() { m.comments.Inc() }

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
