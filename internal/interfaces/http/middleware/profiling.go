package middleware

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

var routeResource = regexp.MustCompile(`^/(?:api/[vV][0-9]+/)?([^/:]+)`)

// Profiling tags pyroscope samples with the matched route, its method and
// the resource it belongs to. Health probes and unmatched paths go untagged.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}

		labels := pyroscope.Labels(
			"route", route,
			"method", c.Request.Method,
			"resource", resourceFromRoute(route),
		)
		pyroscope.TagWrapper(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute: "/api/v1/payments/:id/transactions" is "payments"
func resourceFromRoute(route string) string {
	if m := routeResource.FindStringSubmatch(route); m != nil {
		return m[1]
	}
	return ""
}
