package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yungbote/shipdash-backend/internal/observability"
)

// metricsRoute is the scrape endpoint; scrapes are not API traffic.
const metricsRoute = "/metrics"

// Metrics records per-route request counts, latency and request body sizes.
// Routes are labelled by their pattern, unknown paths as "unmatched".
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.FullPath() == metricsRoute {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
		// uploads dominate this histogram; chunked bodies report -1 and are skipped
		if n := c.Request.ContentLength; n > 0 {
			m.ObserveRequestBytes(route, n)
		}
	}
}
