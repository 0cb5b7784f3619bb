package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "NETGRAPH_"
	configEnvVar = "NETGRAPH_CONFIG_PATH"
)

// Loader composes defaults, an optional YAML file, and environment
// variables (highest priority) into an EngineConfig.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader creates a loader with the conventional search paths.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"netgraph.yaml",
			"config/netgraph.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the YAML search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// Load resolves defaults < config file < environment, in that order.
func (l *Loader) Load() (*EngineConfig, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// The config file is optional; a missing file is not an error.
	_ = l.loadConfigFile()

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg EngineConfig
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"monte_carlo.iterations":  1000,
		"monte_carlo.parallelism": "auto",
		"monte_carlo.seed":        int64(0),

		"msd.alpha_start":     1.0,
		"msd.alpha_min":       0.01,
		"msd.alpha_max":       64.0,
		"msd.growth_factor":   2.0,
		"msd.resolution":      1e-3,
		"msd.seeds_per_alpha": 1,
		"msd.max_iterations":  64,
		"msd.probe_timeout":   time.Duration(0),

		"log.level":  "info",
		"log.format": "json",
		"log.output": "stdout",

		"profile_dir": "",
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv maps PREFIX_SOME_NAME to the key "some.name": every underscore
// becomes a dot. Only keys whose names hold no underscore (for example
// NETGRAPH_LOG_LEVEL -> log.level) can therefore be set from the
// environment; profile_dir, the monte_carlo.* keys and msd keys such as
// alpha_start are not reachable this way.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, l.envPrefix)),
			"_", ".",
		)
	}), nil)
}

// MustLoad loads the config or panics — intended for process start-up only.
func MustLoad(opts ...LoaderOption) *EngineConfig {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load netgraph config: %v", err))
	}
	return cfg
}

// Load loads the config with default search paths and prefix.
func Load() (*EngineConfig, error) {
	return NewLoader().Load()
}
