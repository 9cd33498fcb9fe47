// Package schedule runs tasks on a core.
//
// Each core owns one LL scheduler, driven by the core's timer tick, and one
// EDF scheduler for deadline-ordered work such as host commands. Schedulers
// are kept in an explicit Registry created at bring-up:
//
//	reg := schedule.NewRegistry()
//	ll := schedule.NewLL(0, clock)
//	_ = reg.Register(ll)
//	_ = reg.Init(&t, task.TypeLL, task.PriorityMed, run, data, 0, 0)
//	_ = reg.ScheduleTask(&t, 0, 1000)
//	report := ll.Tick()
//
// Scheduler state is guarded by a per-scheduler mutex that is released
// while a task runs, so Run callbacks may schedule or cancel other tasks on
// the same core.
package schedule
