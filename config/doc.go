// Package config loads runtime configuration for dspd.
//
// Values come from a YAML file (config.yml next to the command, in the
// working directory or under /etc/dspd), an optional .env file, and the
// process environment. Every key can be overridden by the daemon-prefixed
// variable: DSPD_RUNTIME_TICK_PERIOD sets runtime.tick_period and
// DSPD_SERVER_PORT sets server.port.
//
// # Usage
//
//	var cfg Config // embeds config.ServiceConfig
//	if err := config.Load("dspd", &cfg); err != nil { ... }
package config
