// Command dspd runs the audio DSP runtime and serves its host interface
// over HTTP: commands on /ipc and the REST routes, notifications as
// server-sent events.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/dspcore/bootstrap"
	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/config"
	"github.com/kbukum/dspcore/core"
	"github.com/kbukum/dspcore/ipc"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/server"
	"github.com/kbukum/dspcore/server/endpoint"
	"github.com/kbukum/dspcore/sse"
	"github.com/kbukum/dspcore/version"
)

const serviceName = "dspd"

func main() {
	flags := pflag.NewFlagSet(serviceName, pflag.ExitOnError)
	configFile := flags.StringP("config", "c", "", "path to config.yml (searched for when empty)")
	envFile := flags.String("env", "", "path to a .env file (searched for when empty)")
	showVersion := flags.BoolP("version", "v", false, "print the firmware version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.GetVersionInfo().String())
		return
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}

	if err := run(context.Background(), opts...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts ...config.LoaderOption) error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	if err := wire(app); err != nil {
		return err
	}
	return app.Run(ctx)
}

// wire builds every component and registers them in start order:
// telemetry, runtime, notification hub, HTTP server.
func wire(app *bootstrap.App[*Config]) error {
	cfg, log := app.Cfg, app.Logger
	if err := logger.RegisterSubsystems(log, cfg.Logging.Subsystems); err != nil {
		return err
	}

	metrics, err := observability.NewDSPMetrics(observability.Meter("dspcore"))
	if err != nil {
		return err
	}
	telemetry := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, log)

	events := sse.NewComponent(cfg.EventsPath, logger.Get(logger.SubsystemSSE))
	rt, err := core.New(cfg.Runtime,
		core.WithNotifier(ipc.NewNotifier(events.Hub(), logger.Get(logger.SubsystemIPC))),
		core.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	proc := ipc.NewProcessor(rt, cfg.IPC, ipc.WithMetrics(metrics))

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(cfg.Name, func(ctx context.Context) []observability.Health {
		return append(endpoint.FromComponents(app.Components.HealthAll(ctx)), rt.Report(ctx)...)
	})
	engine := srv.GinEngine()
	ipc.NewHandler(proc).RegisterRoutes(engine)
	engine.GET(cfg.EventsPath, sse.Handler(events.Hub()))
	for _, r := range engine.Routes() {
		app.Summary.TrackRoute(r.Method, r.Path, r.Handler)
	}

	for _, c := range []component.Component{telemetry, rt, events, server.NewComponent(srv)} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	app.Watch(rt.Errors())
	return nil
}
