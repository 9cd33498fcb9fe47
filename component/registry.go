package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/dspcore/logger"
)

const stopTimeout = 10 * time.Second

type componentEntry struct {
	component Component
	started   bool
}

// Registry manages service lifecycle with deterministic ordering.
type Registry struct {
	entries []*componentEntry
	lookup  map[string]*componentEntry
	mu      sync.RWMutex
}

// NewRegistry creates a new registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]*componentEntry, 0),
		lookup:  make(map[string]*componentEntry),
	}
}

// Register adds a service. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	logger.Debug("Component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts all services in registration order. On failure the
// services already started are stopped in reverse order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Info("Starting all components", logger.Fields("count", len(r.entries)))

	for _, entry := range r.entries {
		name := entry.component.Name()
		if err := entry.component.Start(ctx); err != nil {
			logger.Error("Component start failed", logger.ErrorFields("start", err))
			if stopErr := r.stopStarted(ctx); stopErr != nil {
				logger.Warn("Rollback after failed start incomplete", logger.ErrorFields("stop", stopErr))
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		entry.started = true
		if d, ok := entry.component.(Describable); ok {
			logDescription(name, d.Describe())
		} else {
			logger.Debug("Component started", logger.Fields(logger.FieldComponent, name))
		}
	}

	logger.Info("All components started successfully")
	return nil
}

// StopAll stops all started services in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger.Info("Stopping all components")
	if err := r.stopStarted(ctx); err != nil {
		return err
	}
	logger.Info("All components stopped successfully")
	return nil
}

func (r *Registry) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}

		name := entry.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := entry.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			logger.Error("Component stop failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, name), err))
		} else {
			logger.Info("Component stopped", logger.Fields(logger.FieldComponent, name))
		}
		entry.started = false
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// HealthAll returns the health of every registered service.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Get returns a registered service by name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered services in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}

func logDescription(name string, d Description) {
	if d.Name == "" {
		d.Name = name
	}
	fields := logger.Fields(logger.FieldComponent, d.Name, "type", d.Type, "details", d.Details)
	if d.Port != 0 {
		fields["port"] = d.Port
	}
	logger.Info("Component started", fields)
}
