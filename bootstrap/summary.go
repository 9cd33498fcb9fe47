package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/dspcore/component"
)

// RouteInfo is a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary collects what the service brought up and prints it once startup
// is complete.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	routes          []RouteInfo
}

// NewSummary creates a summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Routes returns the tracked routes.
func (s *Summary) Routes() []RouteInfo { return s.routes }

// Write prints the summary with the components and live health of registry.
func (s *Summary) Write(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		comps := registry.All()
		if len(comps) > 0 {
			fmt.Fprintf(w, "\n📦 Components\n")
			for i, c := range comps {
				line := c.Name()
				if d, ok := c.(component.Describable); ok {
					desc := d.Describe()
					if desc.Name != "" {
						line = desc.Name
					}
					if desc.Details != "" {
						line += ": " + desc.Details
					}
					if desc.Port > 0 {
						line += fmt.Sprintf(" (:%d)", desc.Port)
					}
				}
				fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(comps)), line)
			}
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		results := registry.HealthAll(context.Background())
		if len(results) > 0 {
			healthy := 0
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				if h.Status == component.StatusHealthy {
					healthy++
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status),
					h.Name, strings.ToLower(string(h.Status)), msg)
			}
			if healthy == len(results) {
				fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(results))
			} else {
				fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(results))
			}
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
