package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/logger"
)

// App runs a long-lived service built from components. C is the typed
// configuration.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer
	onConfigure     []func(ctx context.Context, app *App[C]) error
	fatal           []<-chan error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and sets up the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
		summaryOut:      os.Stdout,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summaryOut != nil {
		app.summaryOut = o.summaryOut
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// RegisterComponent adds a component. Components start in registration
// order and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback run after the components started.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Watch makes Run shut down when ch yields an error.
func (a *App[C]) Watch(ch <-chan error) {
	a.fatal = append(a.fatal, ch)
}

// ReadyCheck reports every component that is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the service and blocks until a signal, ctx cancellation or a
// watched fatal error, then shuts down. A fatal error is returned after
// shutdown.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	cause := a.wait(ctx)

	if err := a.stop(); err != nil && cause == nil {
		return err
	}
	return cause
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		a.rollback()
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			a.rollback()
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready", err))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		a.rollback()
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Write(a.summaryOut, a.Components)
	return nil
}

func (a *App[C]) rollback() {
	if err := a.stop(); err != nil {
		a.Logger.Warn("Rollback after failed startup incomplete", logger.ErrorFields("stop", err))
	}
}

// wait blocks until shutdown is due and returns the fatal error, if any.
func (a *App[C]) wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fatal := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	for _, ch := range a.fatal {
		go func(ch <-chan error) {
			select {
			case err, ok := <-ch:
				if ok && err != nil {
					select {
					case fatal <- err:
					default:
					}
				}
			case <-done:
			}
		}(ch)
	}

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
		return nil
	case err := <-fatal:
		a.Logger.Error("Fatal runtime error, shutting down", logger.ErrorFields("run", err))
		return err
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the service when the caller manages its own lifecycle.
func (a *App[C]) Shutdown(context.Context) error {
	return a.stop()
}

func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("stop", err))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop", err))
		shutdownErr = err
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
