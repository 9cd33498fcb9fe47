package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dspcore/version"
)

var startTime = time.Now()

// Version reports the firmware version and uptime.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		c.JSON(http.StatusOK, gin.H{
			"version": v,
			"string":  v.String(),
			"uptime":  time.Since(startTime).String(),
		})
	}
}
