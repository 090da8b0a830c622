package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"card-approval-service/internal/observability"
)

// Metrics records request count, latency and in-flight requests. Endpoints
// are labelled by route template so path parameters do not explode the
// label space.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestFinished(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
