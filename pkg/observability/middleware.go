package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records one Prometheus HTTP request observation per
// request (method, route, status, duration), independent of the
// per-scan RecordWeb3Transaction call internal/api.Server.runPipeline makes;
// this is the only place that captures general HTTP-surface metrics rather
// than the domain-specific firewall_scan metric.
func MetricsMiddleware(metrics *MetricsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if metrics != nil {
			duration := time.Since(start)
			metrics.RecordHTTPRequest(
				c.Request.Context(),
				c.Request.Method,
				c.FullPath(),
				strconv.Itoa(c.Writer.Status()),
				duration,
			)
		}
	}
}
