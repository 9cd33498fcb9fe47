// Package bootstrap runs a service through its lifecycle: configuration,
// component start in registration order, hooks, a startup summary, and
// graceful shutdown on a signal or a fatal runtime error.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(rt)
//	app.Watch(rt.Errors())
//	if err := app.Run(ctx); err != nil {
//	    os.Exit(1)
//	}
package bootstrap
