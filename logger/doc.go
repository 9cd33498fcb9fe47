// Package logger provides structured logging for the DSP runtime using
// zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers. Data-path code (per-period copy) logs at debug
// level only; control-path code (IPC, trigger, scheduler registration)
// logs at info.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline").WithPipeline(3)
//	log.Info("triggered", logger.Fields(logger.FieldCmd, "START"))
package logger
