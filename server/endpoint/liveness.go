package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Liveness confirms the process is serving HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
