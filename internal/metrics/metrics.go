// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// OperationsTotal counts domain writes (status changes, tickets, uploads).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_operations_total",
			Help: "Total number of portal operations",
		},
		[]string{"operation", "status"},
	)
	RealtimePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_realtime_published_total",
			Help: "Realtime events published, by table",
		},
		[]string{"table"},
	)
	// RealtimeDropped counts events not delivered because a subscriber's
	// buffer was full.
	RealtimeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_realtime_dropped_total",
			Help: "Realtime events dropped for slow subscribers, by table",
		},
		[]string{"table"},
	)
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_realtime_subscribers",
			Help: "Open realtime subscriptions",
		},
	)
)

// Observe records the outcome of a domain operation.
func Observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RequestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
