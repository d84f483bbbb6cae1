package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RejectInvalid  = "invalid"
	RejectConflict = "conflict"
	RejectStore    = "store_error"

	ChannelRealtime = "realtime"
	ChannelEmail    = "email"
	ChannelKafka    = "kafka"
)

// Metrics holds the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	bookingsAdmitted  prometheus.Counter
	bookingRejections *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	subscribers       prometheus.Gauge
}

func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests by method, route and status.",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by method and route.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		bookingsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "bookings_admitted_total",
			Help:        "Bookings stored successfully.",
			ConstLabels: labels,
		}),
		bookingRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_rejections_total",
			Help:        "Booking requests rejected, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_notifications_total",
			Help:        "Booking notifications by channel and outcome.",
			ConstLabels: labels,
		}, []string{"channel", "outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "realtime_subscribers",
			Help:        "Currently connected real-time listeners.",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.bookingsAdmitted,
		m.bookingRejections,
		m.notifications,
		m.subscribers,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) BookingAdmitted() {
	if m == nil {
		return
	}
	m.bookingsAdmitted.Inc()
}

func (m *Metrics) BookingRejected(reason string) {
	if m == nil {
		return
	}
	m.bookingRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) NotificationSent(channel string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, "sent").Inc()
}

func (m *Metrics) NotificationFailed(channel string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, "failed").Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
