// Package metrics holds the Prometheus collectors and the gin middleware
// that records HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "complaintdesk_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_rate_limited_total",
			Help: "Requests rejected by the submission rate limiter",
		},
		[]string{"route"},
	)

	// Domain
	RecordsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_records_created_total",
			Help: "Complaints and feedback items created",
		},
		[]string{"kind"},
	)

	AuthorizationDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_authorization_denied_total",
			Help: "Owner or reply mutations refused by authorization checks",
		},
		[]string{"operation"},
	)

	WriteConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_write_conflicts_total",
			Help: "Version-checked writes that lost a race",
		},
		[]string{"kind"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_events_published_total",
			Help: "Events published to the hub",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "complaintdesk_events_dropped_total",
			Help: "Events dropped because the hub queue was full",
		},
	)

	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "complaintdesk_ws_connections_active",
			Help: "Currently connected event stream clients",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_notifications_total",
			Help: "Staff notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		APIRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
