// Package core runs the simulated DSP cores.
//
// Each Core is one goroutine whose loop selects on the LL timer tick, its
// IDC doorbell, the EDF wake channel and cancellation. One EDF task runs
// per loop iteration, so a due tick is always served between EDF tasks.
// A tick that exceeds the watchdog budget crashes the core.
//
// Runtime owns the cores, the scheduler registry, the IDC bus and the
// pipelines. Pipeline operations are executed on the core that owns the
// pipeline: directly on the primary core, over IDC on the others.
//
//	rt, err := core.New(cfg, core.WithNotifier(n))
//	if err := rt.Start(ctx); err != nil { ... }
//	p, err := rt.NewPipeline(pipeline.Spec{ID: 1, Core: 0, Period: 1000, PeriodFrames: 48})
//	err = rt.Trigger(ctx, 1, comp.CmdStart)
package core
