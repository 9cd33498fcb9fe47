package config

import (
	"fmt"

	"github.com/kbukum/dspcore/logger"
)

// ServiceConfig contains the fields every dspd deployment needs.
// Command configs embed it and add their own sections:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Core core.Config `yaml:"core" mapstructure:"core"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns the base ServiceConfig. Promoted to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Embedding structs call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvs, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Section is implemented by every config section (and by whole configs).
type Section interface {
	ApplyDefaults()
	Validate() error
}

// Load reads configuration into cfg, applies defaults and validates it.
func Load(serviceName string, cfg Section, opts ...LoaderOption) error {
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration for %s: %w", serviceName, err)
	}
	return nil
}
