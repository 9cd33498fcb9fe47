package comp

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/validation"
)

// Registry maps driver UUIDs to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[uuid.UUID]Driver
	names   map[string]uuid.UUID
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[uuid.UUID]Driver),
		names:   make(map[string]uuid.UUID),
	}
}

// Register adds a driver. A second driver with the same UUID or name
// returns AlreadyExists.
func (r *Registry) Register(drv Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drivers[drv.UUID()]; ok {
		return errors.AlreadyExists("driver", drv.UUID())
	}
	name := strings.ToLower(drv.Name())
	if _, ok := r.names[name]; ok {
		return errors.AlreadyExists("driver", drv.Name())
	}
	r.drivers[drv.UUID()] = drv
	r.names[name] = drv.UUID()
	return nil
}

// Get looks a driver up by UUID.
func (r *Registry) Get(id uuid.UUID) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if drv, ok := r.drivers[id]; ok {
		return drv, nil
	}
	return nil, errors.NotFound("driver", id)
}

// Lookup looks a driver up by name.
func (r *Registry) Lookup(name string) (Driver, error) {
	r.mu.RLock()
	id, ok := r.names[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("driver", name)
	}
	return r.Get(id)
}

// Drivers returns the registered drivers sorted by name.
func (r *Registry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Driver, 0, len(r.drivers))
	for _, drv := range r.drivers {
		out = append(out, drv)
	}
	slices.SortFunc(out, func(a, b Driver) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// New creates a device. The driver is chosen by cfg.UUID, or by cfg.Driver
// when the UUID is nil.
func (r *Registry) New(cfg Config) (*Device, error) {
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	if !cfg.Params.IsZero() {
		if err := cfg.Params.Validate(); err != nil {
			return nil, err
		}
	}

	var (
		drv Driver
		err error
	)
	if cfg.UUID != uuid.Nil {
		drv, err = r.Get(cfg.UUID)
	} else {
		drv, err = r.Lookup(cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	ops, err := drv.New(cfg)
	if err != nil {
		return nil, err
	}
	if ops == nil {
		return nil, errors.AllocationFailed(drv.Name(), 0)
	}
	return newDevice(cfg, drv, ops), nil
}
