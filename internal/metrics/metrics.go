package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moms_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moms_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	LoginFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moms_login_failures_total",
		Help: "Failed sign-in and registration attempts by reason",
	}, []string{"reason"})

	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moms_orders_placed_total",
		Help: "Orders created by meal type and order type",
	}, []string{"meal_type", "type"})

	CheckoutOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moms_checkout_outcomes_total",
		Help: "Cart checkouts by outcome",
	}, []string{"outcome"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moms_notifications_total",
		Help: "Notification deliveries by channel and result",
	}, []string{"channel", "result"})

	EventsDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moms_events_dead_lettered_total",
		Help: "Domain events pushed to the dead letter topic",
	})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moms_ws_active_connections",
		Help: "Active websocket connections",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "moms_active_sessions",
		Help: "Signed-in sessions held by this process",
	})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPLatency,
			LoginFailures,
			OrdersPlaced,
			CheckoutOutcomes,
			Notifications,
			EventsDeadLettered,
			WSConnections,
			ActiveSessions,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
