package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback run during startup or shutdown.
type Hook func(ctx context.Context) error

// OnStart registers hooks run after every component started.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers hooks run once the ready check passed.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers hooks run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
