package main

import (
	"fmt"

	"github.com/kbukum/dspcore/config"
	"github.com/kbukum/dspcore/core"
	"github.com/kbukum/dspcore/ipc"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/server"
	"github.com/kbukum/dspcore/version"
)

// Config is the dspd configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Runtime       core.Config          `yaml:"runtime" mapstructure:"runtime"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	IPC           ipc.Config           `yaml:"ipc" mapstructure:"ipc"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	// EventsPath is where hosts subscribe to notifications.
	EventsPath string `yaml:"events_path" mapstructure:"events_path"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.GetVersionInfo().Version
	}
	c.ServiceConfig.ApplyDefaults()
	c.Runtime.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.IPC.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.EventsPath == "" {
		c.EventsPath = "/events"
	}
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name string
		s    config.Section
	}{
		{"runtime", &c.Runtime},
		{"server", &c.Server},
		{"ipc", &c.IPC},
		{"observability", &c.Observability},
	}
	for _, sec := range sections {
		if err := sec.s.Validate(); err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return nil
}
