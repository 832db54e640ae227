package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the rooms service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	receiptFanoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_receipt_fanout_total",
			Help: "Total number of status receipts written during fan-out.",
		},
		[]string{"action"},
	)
	receiptFanoutFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_receipt_fanout_failures_total",
			Help: "Total number of failed receipt writes during fan-out.",
		},
		[]string{"action"},
	)
	statusPromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_status_promotions_total",
			Help: "Total number of coarse message status promotions.",
		},
		[]string{"status"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		receiptFanoutTotal,
		receiptFanoutFailuresTotal,
		statusPromotionsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncReceiptFanout(action string) {
	receiptFanoutTotal.WithLabelValues(action).Inc()
}

func IncReceiptFanoutFailure(action string) {
	receiptFanoutFailuresTotal.WithLabelValues(action).Inc()
}

func IncStatusPromotion(status string) {
	statusPromotionsTotal.WithLabelValues(status).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
