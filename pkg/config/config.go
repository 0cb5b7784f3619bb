// Package config holds the handful of knobs the analysis engine itself
// consumes. Everything service-shaped — gRPC/HTTP listeners, databases,
// caches, audit sinks — belongs to the external serving layer, not here.
package config

import "time"

// EngineConfig are the defaults the core falls back to when a caller
// doesn't specify a value explicitly on a per-call basis.
type EngineConfig struct {
	MonteCarlo MonteCarloConfig `koanf:"monte_carlo"`
	MSD        MSDConfig        `koanf:"msd"`
	Log        LogConfig        `koanf:"log"`
	ProfileDir string           `koanf:"profile_dir"`
}

// MonteCarloConfig are the FailureManager run defaults.
type MonteCarloConfig struct {
	Iterations  int    `koanf:"iterations"`
	Parallelism string `koanf:"parallelism"` // integer string, or "auto"
	Seed        int64  `koanf:"seed"`
}

// MSDConfig are the maximum-supported-demand search defaults.
type MSDConfig struct {
	AlphaStart    float64       `koanf:"alpha_start"`
	AlphaMin      float64       `koanf:"alpha_min"`
	AlphaMax      float64       `koanf:"alpha_max"`
	GrowthFactor  float64       `koanf:"growth_factor"`
	Resolution    float64       `koanf:"resolution"`
	SeedsPerAlpha int           `koanf:"seeds_per_alpha"`
	MaxIterations int           `koanf:"max_iterations"`
	ProbeTimeout  time.Duration `koanf:"probe_timeout"`
}

// LogConfig mirrors pkg/logger.Config for koanf-driven construction.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Output string `koanf:"output"`
}

// Default returns the engine's built-in defaults.
func Default() *EngineConfig {
	return &EngineConfig{
		MonteCarlo: MonteCarloConfig{
			Iterations:  1000,
			Parallelism: "auto",
		},
		MSD: MSDConfig{
			AlphaStart:    1.0,
			AlphaMin:      0.01,
			AlphaMax:      64.0,
			GrowthFactor:  2.0,
			Resolution:    1e-3,
			SeedsPerAlpha: 1,
			MaxIterations: 64,
			ProbeTimeout:  0,
		},
		Log: LogConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}
