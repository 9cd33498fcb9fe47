package main

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kbukum/dspcore/bootstrap"
	"github.com/kbukum/dspcore/config"
	"github.com/kbukum/dspcore/logger"
)

func TestLoadConfigFile(t *testing.T) {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, config.WithConfigFile("config.yml")); err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Name != "dspd" || cfg.Runtime.Cores != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Runtime.TickPeriod != time.Millisecond {
		t.Errorf("expected 1ms tick, got %s", cfg.Runtime.TickPeriod)
	}
	if cfg.Runtime.WatchdogBudget < 2 {
		t.Errorf("expected a watchdog budget of at least 2 ticks, got %v", cfg.Runtime.WatchdogBudget)
	}
	if cfg.Logging.Subsystems["comp"] != "warn" {
		t.Errorf("expected comp logging at warn, got %v", cfg.Logging.Subsystems)
	}
	if cfg.Runtime.Pipeline.XrunThreshold != 2 {
		t.Errorf("expected xrun threshold 2, got %d", cfg.Runtime.Pipeline.XrunThreshold)
	}
	if cfg.IPC.CommandTimeout != 2*time.Second {
		t.Errorf("expected 2s command timeout, got %s", cfg.IPC.CommandTimeout)
	}
	if cfg.Server.Port != 8086 || cfg.EventsPath != "/events" {
		t.Errorf("unexpected server section %+v / %s", cfg.Server, cfg.EventsPath)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"too many cores", func(c *Config) { c.Runtime.Cores = 64 }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative timeout", func(c *Config) { c.IPC.CommandTimeout = -time.Second }, true},
		{"bad sample rate", func(c *Config) { c.Observability.SampleRate = 2 }, true},
		{"subsystem level", func(c *Config) { c.Logging.Subsystems = map[string]string{"comp": "debug"} }, false},
		{"unknown subsystem", func(c *Config) { c.Logging.Subsystems = map[string]string{"dma": "debug"} }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestWireAndServe(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 0
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(logger.Nop()), bootstrap.WithSummaryOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	// ApplyDefaults turns port 0 into 8086; bind an ephemeral port instead.
	app.Cfg.Server.Port = 0
	app.Cfg.Server.Host = "127.0.0.1"
	app.Cfg.Runtime.WatchdogBudget = 100
	if err := wire(app); err != nil {
		t.Fatalf("wire: %v", err)
	}

	names := []string{}
	for _, c := range app.Components.All() {
		names = append(names, c.Name())
	}
	want := []string{"telemetry", "runtime", "sse", "server"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("component %d: expected %s, got %s", i, want[i], names[i])
		}
	}

	for _, want := range []struct{ method, path string }{
		{http.MethodPost, "/ipc"},
		{http.MethodGet, "/pipelines/:id/position"},
	} {
		found := false
		for _, r := range app.Summary.Routes() {
			if r.Method == want.method && r.Path == want.path {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s %s among %v", want.method, want.path, app.Summary.Routes())
		}
	}
	for _, name := range logger.Subsystems {
		if logger.Get(name) == nil {
			t.Errorf("expected a %s logger after wire", name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
	}
}
