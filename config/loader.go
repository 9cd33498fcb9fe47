package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file lookups so the resolver can be tested.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the firmware config and env files for a daemon.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise searches for them.
func (r *Resolver) ResolveFiles(daemon string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configSearchPaths(daemon))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envSearchPaths(daemon))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// configSearchPaths lists config.yml locations in priority order: the
// command directory (for go run from the repo), the working directory, and
// the system-wide install location.
func configSearchPaths(daemon string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", daemon),
		fmt.Sprintf("../cmd/%s/config.yml", daemon),
		"./config.yml",
		fmt.Sprintf("/etc/%s/config.yml", daemon),
	}
}

func envSearchPaths(daemon string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", daemon),
		fmt.Sprintf("./.env.%s", daemon),
		"./.env",
	}
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// EnvPrefix returns the environment prefix for a daemon: "dspd" reads
// DSPD_RUNTIME_CORES, DSPD_SERVER_PORT and so on.
func EnvPrefix(daemon string) string {
	return strings.ToUpper(strings.ReplaceAll(daemon, "-", "_"))
}

// EnvName returns the variable that overrides a config key for a daemon.
func EnvName(daemon, key string) string {
	return EnvPrefix(daemon) + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadConfig loads configuration for a daemon into cfg. The YAML file is
// the base layer; a .env file and then the process environment override
// it. Every key cfg declares through mapstructure tags can be overridden
// by its EnvName. Defaults and validation are left to the caller; see Load.
func LoadConfig(daemon string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(daemon, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
	}

	// godotenv never overwrites variables already set in the process.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", files.EnvFile, err)
		}
	}

	for _, key := range ConfigKeys(cfg) {
		if err := v.BindEnv(key, EnvName(daemon, key)); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode %s config: %w", daemon, err)
	}
	return nil
}

// ConfigKeys returns the dotted keys a config struct declares through its
// mapstructure tags. Squashed structs contribute their keys at the parent
// level. Map fields are file-only and not listed.
func ConfigKeys(cfg interface{}) []string {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && strings.Contains(opts, "squash") {
			collectKeys(ft, prefix, keys)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		switch {
		case ft.Kind() == reflect.Map:
			// file-only
		case ft.Kind() == reflect.Struct && ft.PkgPath() != "time":
			collectKeys(ft, key, keys)
		default:
			*keys = append(*keys, key)
		}
	}
}

