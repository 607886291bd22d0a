// Package metrics holds the Prometheus collectors for missiv.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tOgg1/missiv/internal/models"
)

const namespace = "missiv"

// Metrics records domain and HTTP metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	mivsAppended          *prometheus.CounterVec
	mivsRead              prometheus.Counter
	mivsForgotten         prometheus.Counter
	conversationsCreated  prometheus.Counter
	conversationsArchived prometheus.Counter
	basketQueries         *prometheus.CounterVec
	operationErrors       *prometheus.CounterVec
	notifications         *prometheus.CounterVec
	notificationsRead     prometheus.Counter
	httpDuration          *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mivsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mivs_appended_total",
			Help:      "Mivs appended to conversations by kind (first, reply, ack).",
		}, []string{"kind"}),
		mivsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mivs_read_total",
			Help:      "Mivs whose read_at was set.",
		}),
		mivsForgotten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mivs_forgotten_total",
			Help:      "Mivs forgotten by their sender.",
		}),
		conversationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_created_total",
			Help:      "Conversations opened.",
		}),
		conversationsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_archived_total",
			Help:      "Conversations archived.",
		}),
		basketQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_queries_total",
			Help:      "Basket listings served by basket.",
		}, []string{"basket"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed operations by operation and error code.",
		}, []string{"op", "code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Notifications published to in-process subscribers by event type.",
		}, []string{"type"}),
		notificationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_read_total",
			Help:      "Notifications marked read by their desk.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		m.mivsAppended,
		m.mivsRead,
		m.mivsForgotten,
		m.conversationsCreated,
		m.conversationsArchived,
		m.basketQueries,
		m.operationErrors,
		m.notifications,
		m.notificationsRead,
		m.httpDuration,
	)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// MivAppended counts an appended miv. kind is first, reply or ack.
func (m *Metrics) MivAppended(kind string) {
	if m == nil {
		return
	}
	m.mivsAppended.WithLabelValues(kind).Inc()
}

// MivsRead counts n mivs marked read.
func (m *Metrics) MivsRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mivsRead.Add(float64(n))
}

func (m *Metrics) MivForgotten() {
	if m == nil {
		return
	}
	m.mivsForgotten.Inc()
}

func (m *Metrics) ConversationCreated() {
	if m == nil {
		return
	}
	m.conversationsCreated.Inc()
}

func (m *Metrics) ConversationArchived() {
	if m == nil {
		return
	}
	m.conversationsArchived.Inc()
}

func (m *Metrics) BasketQueried(b models.Basket) {
	if m == nil {
		return
	}
	m.basketQueries.WithLabelValues(string(b)).Inc()
}

// OperationFailed counts a failed operation under its error code.
func (m *Metrics) OperationFailed(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.operationErrors.WithLabelValues(op, models.ErrorCode(err)).Inc()
}

// NotificationPublished counts a notification handed to subscribers.
func (m *Metrics) NotificationPublished(eventType models.EventType) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) NotificationRead() {
	if m == nil {
		return
	}
	m.notificationsRead.Inc()
}

// ObserveHTTP records the latency of one HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
