package schedule

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/task"
)

// Registry holds one scheduler per (core, type) and assigns task ids.
type Registry struct {
	mu     sync.RWMutex
	cores  map[int]map[task.Type]Scheduler
	nextID atomic.Uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a scheduler. A second scheduler of the same type on the
// same core returns AlreadyExists.
func (r *Registry) Register(s Scheduler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cores == nil {
		r.cores = make(map[int]map[task.Type]Scheduler)
	}
	byType, ok := r.cores[s.Core()]
	if !ok {
		byType = make(map[task.Type]Scheduler)
		r.cores[s.Core()] = byType
	}
	if _, exists := byType[s.Type()]; exists {
		return errors.AlreadyExists(s.Type().String()+" scheduler", s.Core())
	}
	byType[s.Type()] = s
	return nil
}

// Get returns the scheduler of a type on a core.
func (r *Registry) Get(core int, typ task.Type) (Scheduler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.cores[core][typ]; ok {
		return s, nil
	}
	return nil, errors.NotFound(typ.String()+" scheduler", core)
}

// LL returns the LL scheduler of a core.
func (r *Registry) LL(core int) (*LL, error) {
	s, err := r.Get(core, task.TypeLL)
	if err != nil {
		return nil, err
	}
	ll, ok := s.(*LL)
	if !ok {
		return nil, errors.Internal(fmt.Errorf("core %d LL scheduler has type %T", core, s))
	}
	return ll, nil
}

// EDF returns the EDF scheduler of a core.
func (r *Registry) EDF(core int) (*EDF, error) {
	s, err := r.Get(core, task.TypeEDF)
	if err != nil {
		return nil, err
	}
	edf, ok := s.(*EDF)
	if !ok {
		return nil, errors.Internal(fmt.Errorf("core %d EDF scheduler has type %T", core, s))
	}
	return edf, nil
}

// Cores returns the cores with at least one scheduler, ascending.
func (r *Registry) Cores() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cores := make([]int, 0, len(r.cores))
	for c := range r.cores {
		cores = append(cores, c)
	}
	slices.Sort(cores)
	return cores
}

// Init initializes t like task.InitTask and gives it a registry-wide id.
func (r *Registry) Init(t *task.Task, typ task.Type, priority int, run task.RunFunc, data any, core int, flags task.Flags) error {
	if err := task.InitTask(t, typ, priority, run, data, core, flags); err != nil {
		return err
	}
	if t.ID == 0 {
		t.ID = r.nextID.Add(1)
	}
	return nil
}

// ScheduleTask routes to the scheduler for t's type on t's core.
func (r *Registry) ScheduleTask(t *task.Task, start, period uint64) error {
	s, err := r.owner(t)
	if err != nil {
		return err
	}
	return s.Schedule(t, start, period)
}

// RescheduleTask moves the start of a queued task.
func (r *Registry) RescheduleTask(t *task.Task, start uint64) error {
	s, err := r.owner(t)
	if err != nil {
		return err
	}
	return s.Reschedule(t, start)
}

// CancelTask cancels a queued task on its owning scheduler.
func (r *Registry) CancelTask(t *task.Task) error {
	s, err := r.owner(t)
	if err != nil {
		return err
	}
	return s.Cancel(t)
}

// FreeTask frees a task on its owning scheduler.
func (r *Registry) FreeTask(t *task.Task) error {
	s, err := r.owner(t)
	if err != nil {
		return err
	}
	return s.Free(t)
}

// Queued returns how many tasks are queued on a core across schedulers.
func (r *Registry) Queued(core int) int {
	r.mu.RLock()
	byType := r.cores[core]
	scheds := make([]Scheduler, 0, len(byType))
	for _, s := range byType {
		scheds = append(scheds, s)
	}
	r.mu.RUnlock()

	n := 0
	for _, s := range scheds {
		n += len(s.Tasks())
	}
	return n
}

func (r *Registry) owner(t *task.Task) (Scheduler, error) {
	if t == nil {
		return nil, errors.InvalidArgument("task", "nil task")
	}
	return r.Get(t.Core, t.Type)
}
