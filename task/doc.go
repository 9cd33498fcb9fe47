// Package task defines the schedulable unit of work and its state machine.
//
// A task is created once, bound to one core and one scheduler type, and
// reused across periods. Its Run callback reports what should happen next
// by returning a State:
//
//	func run(data any) task.State {
//	    if done {
//	        return task.Completed
//	    }
//	    return task.Reschedule
//	}
//
// State changes go through Transition, which enforces the legal edges.
package task
