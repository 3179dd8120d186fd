package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signature_http_requests_total",
			Help: "Total HTTP requests handled by the signature form API",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signature_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signature_submissions_total",
			Help: "Agreement submissions by outcome",
		},
		[]string{"outcome"},
	)

	signatureFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signature_files_written_total",
			Help: "Signature files stored, by format",
		},
		[]string{"format"},
	)
)

// MetricsMiddleware records request counts and latency. The route template
// is used as the path label so ids do not explode label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordSubmission counts one submission outcome ("success" or an error kind)
// and the formats written for it.
func RecordSubmission(outcome string, formats ...string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
	for _, format := range formats {
		signatureFilesTotal.WithLabelValues(format).Inc()
	}
}
