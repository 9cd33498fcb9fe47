package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dspcore/observability"
)

// Readiness answers 503 while any component is down. Degraded still counts
// as ready: an xrun pipeline does not stop the host from sending commands.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ready"
		httpStatus := http.StatusOK

		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				if h.Status == observability.HealthStatusDown {
					status = "not_ready"
					httpStatus = http.StatusServiceUnavailable
					break
				}
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
