package bootstrap

import (
	"github.com/kbukum/dspcore/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig satisfies it through promoted methods:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Core core.Config `yaml:"core" mapstructure:"core"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
