package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/version"
)

// HealthChecker returns the health of every reporting part of the service.
type HealthChecker func(ctx context.Context) []observability.Health

// Health reports aggregated service health. A down component answers 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(serviceName, version.GetVersionInfo().String())
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				sh.AddComponent(h)
			}
		}

		httpStatus := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"summary":    sh.Summary,
			"components": sh.Components,
		})
	}
}

// FromComponents maps lifecycle component health onto observability health.
func FromComponents(hs []component.Health) []observability.Health {
	out := make([]observability.Health, 0, len(hs))
	for _, h := range hs {
		status := observability.HealthStatusUp
		switch h.Status {
		case component.StatusUnhealthy:
			status = observability.HealthStatusDown
		case component.StatusDegraded:
			status = observability.HealthStatusDegraded
		}
		out = append(out, observability.Health{
			Name:    h.Name,
			Kind:    observability.HealthKindComponent,
			Status:  status,
			Message: h.Message,
		})
	}
	return out
}
