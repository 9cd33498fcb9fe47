package ipc

import (
	"fmt"
	"time"
)

// Config holds host command settings.
type Config struct {
	// CommandTimeout bounds one command from submit to reply.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 2 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.CommandTimeout < 0 {
		return fmt.Errorf("ipc.command_timeout must be non-negative (got: %s)", c.CommandTimeout)
	}
	return nil
}
