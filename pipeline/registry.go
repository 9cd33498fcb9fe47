package pipeline

import (
	"sort"
	"sync"

	"github.com/kbukum/dspcore/errors"
)

// Registry holds the pipelines of one runtime by id.
type Registry struct {
	mu    sync.RWMutex
	items map[uint32]*Pipeline
}

// NewRegistry creates an empty pipeline registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[uint32]*Pipeline)}
}

// Add registers p. Ids are unique across cores.
func (r *Registry) Add(p *Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; ok {
		return errors.AlreadyExists("pipeline", p.ID)
	}
	r.items[p.ID] = p
	return nil
}

// Get returns the pipeline with the given id.
func (r *Registry) Get(id uint32) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("pipeline", id)
	}
	return p, nil
}

// Remove forgets the pipeline without freeing it.
func (r *Registry) Remove(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return errors.NotFound("pipeline", id)
	}
	delete(r.items, id)
	return nil
}

// All returns every pipeline ordered by id.
func (r *Registry) All() []*Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Pipeline, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OnCore returns the pipelines scheduled on core, ordered by id.
func (r *Registry) OnCore(core int) []*Pipeline {
	var out []*Pipeline
	for _, p := range r.All() {
		if p.Core == core {
			out = append(out, p)
		}
	}
	return out
}

// Xruns returns the ids of pipelines whose xrun flag is set.
func (r *Registry) Xruns() []uint32 {
	var ids []uint32
	for _, p := range r.All() {
		if p.Xrun() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
