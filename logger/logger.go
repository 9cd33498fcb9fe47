package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
	BooleanTrue   = "true"
)

// Logger wraps zerolog.Logger with additional context.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init initializes the global logger from config.
func Init(cfg *Config) {
	cfg.ApplyDefaults()
	service := cfg.ServiceName
	if service == "" {
		service = "default"
	}
	globalLogger = New(cfg, service)

	if isConsole(cfg.Format) {
		log.Logger = newConsoleLogger(cfg, service)
	}
}

// New creates a new logger instance with configuration.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// The global floor admits the most verbose subsystem override; each
	// logger then filters at its own level.
	floor := level
	for _, s := range cfg.Subsystems {
		if l, err := zerolog.ParseLevel(s); err == nil && l < floor {
			floor = l
		}
	}
	zerolog.SetGlobalLevel(floor)

	var zl zerolog.Logger
	if isConsole(cfg.Format) {
		zl = newConsoleLogger(cfg, serviceName)
	} else {
		zl = zerolog.New(outputWriter(cfg.Output))
	}

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	zl = zl.Level(level)

	return &Logger{
		logger:  zl,
		service: serviceName,
	}
}

// NewWithWriter creates a JSON logger writing to w. Used by tests that
// assert on emitted records.
func NewWithWriter(w io.Writer, serviceName string) *Logger {
	return &Logger{
		logger:  zerolog.New(w).With().Timestamp().Logger(),
		service: serviceName,
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    FormatConsole,
		Output:    "stdout",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// NewFromEnv creates a logger configured from environment variables.
func NewFromEnv(serviceName string) *Logger {
	cfg := &Config{
		Level:     getEnvOrDefault("LOG_LEVEL", "info"),
		Format:    getEnvOrDefault("LOG_FORMAT", FormatConsole),
		Output:    getEnvOrDefault("LOG_OUTPUT", "stdout"),
		NoColor:   getEnvOrDefault("LOG_NO_COLOR", "false") == BooleanTrue,
		Timestamp: getEnvOrDefault("LOG_TIMESTAMP", "true") == BooleanTrue,
	}
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

// ContextWithRequestID stores a request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldRequestID), id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey(FieldRequestID)).(string)
	return id
}

// WithContext returns a logger enriched with trace/span/request IDs from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()

	for _, key := range []string{FieldTraceID, FieldSpanID, FieldRequestID} {
		if v := ctx.Value(contextKey(key)); v != nil {
			zc = zc.Str(key, fmt.Sprintf("%v", v))
		}
	}

	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithLevel returns a copy of the logger filtering at level.
func (l *Logger) WithLevel(level string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return &Logger{logger: l.logger.Level(lvl), service: l.service}, nil
}

// WithCore returns a logger tagged with a DSP core id.
func (l *Logger) WithCore(core int) *Logger {
	return &Logger{
		logger:  l.logger.With().Int(FieldCore, core).Logger(),
		service: l.service,
	}
}

// WithPipeline returns a logger tagged with a pipeline id.
func (l *Logger) WithPipeline(id uint32) *Logger {
	return &Logger{
		logger:  l.logger.With().Uint32(FieldPipelineID, id).Logger(),
		service: l.service,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	event := l.logger.Fatal()
	addFields(event, fields...)
	event.Msg(msg)
}

// --- Global logger ---

var globalLogger *Logger

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(l *Logger) { globalLogger = l }

// GetGlobalLogger returns the global logger, creating a default one if needed.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

// Package-level convenience functions delegate to the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Fatal(msg, fields...)
}

// WithContext returns a context-enriched logger from the global logger.
func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithComponent returns a component-tagged logger from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

// --- internal helpers ---

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}

func isConsole(format string) bool {
	f := strings.ToLower(format)
	return f == FormatConsole || f == FormatPretty
}

func outputWriter(output string) *os.File {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

var levelTags = map[string]string{
	"TRACE": "TRC",
	"DEBUG": "DBG",
	"INFO":  "INF",
	"WARN":  "WRN",
	"ERROR": "ERR",
	"FATAL": "FTL",
}

var levelColors = map[string]string{
	"DEBUG": "\033[36m",
	"INFO":  "\033[32m",
	"WARN":  "\033[33m",
	"ERROR": "\033[31m",
	"FATAL": "\033[35m",
}

func newConsoleLogger(cfg *Config, serviceName string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        outputWriter(cfg.Output),
		TimeFormat: "15:04:05.000",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprintf("%s", i))
			tag, ok := levelTags[lvl]
			if !ok {
				tag = lvl
			}
			out := "[" + tag + "]"
			if color, ok := levelColors[lvl]; ok && !cfg.NoColor {
				out = color + out + "\033[0m"
			}
			if serviceName != "" && serviceName != "default" && len(serviceName) >= 3 {
				svc := "[" + strings.ToUpper(serviceName[:3]) + "]"
				if !cfg.NoColor {
					svc = "\033[34m" + svc + "\033[0m"
				}
				return svc + out
			}
			return out
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	}).With().Timestamp().Logger()
}
