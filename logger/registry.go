package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Runtime subsystems. Each package fetches its logger with Get.
const (
	SubsystemCore     = "core"
	SubsystemSchedule = "schedule"
	SubsystemPipeline = "pipeline"
	SubsystemComp     = "comp"
	SubsystemIDC      = "idc"
	SubsystemIPC      = "ipc"
	SubsystemSSE      = "sse"
)

// Subsystems lists every runtime subsystem in bring-up order.
var Subsystems = []string{
	SubsystemCore, SubsystemSchedule, SubsystemPipeline, SubsystemComp,
	SubsystemIDC, SubsystemIPC, SubsystemSSE,
}

var registry = &loggerRegistry{loggers: make(map[string]*Logger)}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get returns the logger registered for name. A dotted name such as
// "schedule.ll" falls back to its subsystem; anything else gets the global
// logger tagged with name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	if !ok {
		if i := strings.IndexByte(name, '.'); i > 0 {
			l, ok = registry.loggers[name[:i]]
		}
	}
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterSubsystems registers one logger per subsystem, derived from base
// and tagged with the subsystem name. levels overrides the level of
// individual subsystems, e.g. {"comp": "debug"} to trace the copy path.
func RegisterSubsystems(base *Logger, levels map[string]string) error {
	if err := validateSubsystemLevels(levels); err != nil {
		return err
	}
	for _, name := range Subsystems {
		l := base.WithComponent(name)
		if lvl, ok := levels[name]; ok {
			var err error
			if l, err = l.WithLevel(lvl); err != nil {
				return err
			}
		}
		Register(name, l)
	}
	return nil
}

func validateSubsystemLevels(levels map[string]string) error {
	for name, lvl := range levels {
		if !contains(Subsystems, name) {
			return fmt.Errorf("logging.subsystems: unknown subsystem %q (valid: %v)", name, Subsystems)
		}
		if !contains(validLevels, lvl) {
			return fmt.Errorf("logging.subsystems.%s must be one of %v (got: %s)", name, validLevels, lvl)
		}
	}
	return nil
}
