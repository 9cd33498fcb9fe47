package server

import (
	"context"
	"fmt"

	"github.com/kbukum/dspcore/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string                    { return componentName }
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }
func (c *Component) Stop(ctx context.Context) error  { return c.server.Stop(ctx) }

// Health reports healthy once the listener is bound.
func (c *Component) Health(context.Context) component.Health {
	c.server.mu.Lock()
	bound := c.server.listener != nil
	c.server.mu.Unlock()
	if !bound {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusUnhealthy,
			Message: "not listening",
		}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	cfg := c.server.config
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Port:    cfg.Port,
	}
}
