package observability

import (
	"fmt"
	"time"
)

// Config is the observability section of the service configuration.
type Config struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate checks the section.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0,1] (got: %v)", c.SampleRate)
	}
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("observability.endpoint is required when enabled")
	}
	return nil
}

// MeterConfig derives the meter settings for a service.
func (c *Config) MeterConfig(service, version, env string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    env,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Interval:       c.Interval,
	}
}

// TracerConfig derives the tracer settings for a service.
func (c *Config) TracerConfig(service, version, env string) *TracerConfig {
	return &TracerConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    env,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}
