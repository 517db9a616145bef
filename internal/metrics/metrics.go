package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuoteTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplylink_quote_transitions_total",
			Help: "Quote workflow transitions by action",
		},
		[]string{"action"},
	)

	OrderStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplylink_order_status_changes_total",
			Help: "Order creations and status updates by resulting status",
		},
		[]string{"status"},
	)

	WSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "supplylink_ws_broadcasts_total",
			Help: "Order status events fanned out to websocket subscribers",
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplylink_jobs_processed_total",
			Help: "Background jobs handled by the queue worker",
		},
		[]string{"type", "result"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supplylink_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// GinMiddleware records request latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
