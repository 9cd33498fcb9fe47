package pipeline

import (
	"fmt"

	"github.com/kbukum/dspcore/errors"
)

// DefaultXrunThreshold is the number of consecutive no-progress periods
// that raise an xrun.
const DefaultXrunThreshold = 2

// Config holds runtime-wide pipeline settings.
type Config struct {
	// XrunThreshold is the number of consecutive partial periods that raise
	// one xrun.
	XrunThreshold int `yaml:"xrun_threshold" mapstructure:"xrun_threshold" json:"xrun_threshold"`
	// TriggerDelay defers the START stage by this many periods after
	// PRE_START.
	TriggerDelay int `yaml:"trigger_delay" mapstructure:"trigger_delay" json:"trigger_delay"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.XrunThreshold == 0 {
		c.XrunThreshold = DefaultXrunThreshold
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.XrunThreshold < 1 {
		return errors.InvalidArgument("xrun_threshold", fmt.Sprintf("must be at least 1, got %d", c.XrunThreshold))
	}
	if c.TriggerDelay < 0 {
		return errors.InvalidArgument("trigger_delay", fmt.Sprintf("must not be negative, got %d", c.TriggerDelay))
	}
	return nil
}

// Spec describes a pipeline to create.
type Spec struct {
	ID           uint32 `json:"id" validate:"required"`
	Core         int    `json:"core" validate:"gte=0"`
	Priority     int    `json:"priority" validate:"gte=0,lte=19"`
	Period       uint64 `json:"period_us" validate:"required,gt=0"`
	PeriodFrames int    `json:"period_frames" validate:"required,gt=0"`
}
