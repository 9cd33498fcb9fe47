package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/logger"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Hub under the component registry.
type Component struct {
	hub  *Hub
	wg   sync.WaitGroup
	path string
}

// NewComponent creates a component with a fresh Hub served at path.
func NewComponent(path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(log), path: path}
}

func (c *Component) Hub() *Hub    { return c.hub }
func (c *Component) Name() string { return "sse" }

// Start runs the hub loop in the background.
func (c *Component) Start(context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop stops the hub and waits for its loop to exit.
func (c *Component) Stop(context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	select {
	case <-c.hub.Done():
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "stopped"}
	default:
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Notification stream",
		Type:    "sse",
		Details: fmt.Sprintf("Path: %s", c.path),
	}
}
