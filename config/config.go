// SPDX-License-Identifier: MIT

// Package config loads and validates drainsim run configuration (YAML) and
// maps it onto engine, filler, solver and erosion options.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/drainage/engine"
	"github.com/katalvlaran/drainage/erosion"
	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
	"github.com/katalvlaran/drainage/solver"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is a complete simulation run.
type Config struct {
	Mesh    MeshConfig    `yaml:"mesh"`
	Terrain TerrainConfig `yaml:"terrain"`
	Forcing ForcingConfig `yaml:"forcing"`
	Fill    FillConfig    `yaml:"fill"`
	Solver  SolverConfig  `yaml:"solver"`
	Erosion ErosionConfig `yaml:"erosion"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
}

// MeshConfig describes the regular grid mesh.
type MeshConfig struct {
	Rows         int     `yaml:"rows"`
	Cols         int     `yaml:"cols"`
	Spacing      float64 `yaml:"spacing"`      // metres between nodes
	Connectivity string  `yaml:"connectivity"` // conn4, conn8
}

// TerrainConfig describes the synthetic initial surface.
type TerrainConfig struct {
	OceanRows      int     `yaml:"ocean_rows"`      // rows below sea level at y=0
	OceanDepth     float64 `yaml:"ocean_depth"`     // metres below sea level
	Slope          float64 `yaml:"slope"`           // rise per metre inland
	BumpAmplitude  float64 `yaml:"bump_amplitude"`  // metres
	BumpWavelength float64 `yaml:"bump_wavelength"` // metres
}

// ForcingConfig holds uniform forcing.
type ForcingConfig struct {
	Rain        float64 `yaml:"rain"`        // m/yr
	SeaLevel    float64 `yaml:"sea_level"`   // m
	Erodibility float64 `yaml:"erodibility"` // stream-power K
	TimeStep    float64 `yaml:"time_step"`   // yr
	Fanout      int     `yaml:"fanout"`      // receivers per node
}

// FillConfig configures the depression filler.
type FillConfig struct {
	Epsilon      float64 `yaml:"epsilon"`
	OceanMargin  float64 `yaml:"ocean_margin"`
	OpenBoundary bool    `yaml:"open_boundary"`
}

// SolverConfig configures both discharge solves.
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	Omega         float64 `yaml:"omega"`
}

// ErosionConfig configures the erosion solve.
type ErosionConfig struct {
	SeaMargin         float64 `yaml:"sea_margin"`
	DischargeExponent float64 `yaml:"discharge_exponent"`
	Tolerance         float64 `yaml:"tolerance"`
	MaxIterations     int     `yaml:"max_iterations"`
}

// RunConfig controls the driver loop.
type RunConfig struct {
	Steps      int `yaml:"steps"`
	Partitions int `yaml:"partitions"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Mesh: MeshConfig{
			Rows:         64,
			Cols:         48,
			Spacing:      250,
			Connectivity: "conn8",
		},
		Terrain: TerrainConfig{
			OceanRows:      3,
			OceanDepth:     20,
			Slope:          0.01,
			BumpAmplitude:  15,
			BumpWavelength: 3000,
		},
		Forcing: ForcingConfig{
			Rain:        1,
			SeaLevel:    0,
			Erodibility: 5e-6,
			TimeStep:    1000,
			Fanout:      3,
		},
		Fill: FillConfig{
			Epsilon:      pitfill.DefaultEpsilon,
			OceanMargin:  pitfill.DefaultOceanMargin,
			OpenBoundary: pitfill.DefaultOpenBoundary,
		},
		Solver: SolverConfig{
			Tolerance:     solver.DefaultTolerance,
			MaxIterations: solver.DefaultMaxIterations,
			Omega:         solver.DefaultOmega,
		},
		Erosion: ErosionConfig{
			SeaMargin:         erosion.DefaultSeaMargin,
			DischargeExponent: erosion.DefaultDischargeExponent,
			Tolerance:         solver.DefaultTolerance,
			MaxIterations:     solver.DefaultMaxIterations,
		},
		Run: RunConfig{
			Steps:      20,
			Partitions: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}

// applyEnvOverrides applies DRAINSIM_* environment overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DRAINSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DRAINSIM_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Run.Partitions = n
		}
	}
	if v := os.Getenv("DRAINSIM_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Run.Steps = n
		}
	}
}

// Validate checks every field the option constructors would reject, so
// EngineOptions never panics on a validated Config.
func (c *Config) Validate() error {
	checks := []struct {
		ok    bool
		field string
	}{
		{c.Mesh.Rows >= 1 && c.Mesh.Cols >= 1, "mesh.rows/cols"},
		{positive(c.Mesh.Spacing), "mesh.spacing"},
		{c.Mesh.Connectivity == "conn4" || c.Mesh.Connectivity == "conn8", "mesh.connectivity"},
		{c.Terrain.OceanRows >= 0 && c.Terrain.OceanRows < c.Mesh.Rows, "terrain.ocean_rows"},
		{finite(c.Terrain.OceanDepth) && c.Terrain.OceanDepth >= 0, "terrain.ocean_depth"},
		{finite(c.Terrain.Slope), "terrain.slope"},
		{finite(c.Terrain.BumpAmplitude), "terrain.bump_amplitude"},
		{positive(c.Terrain.BumpWavelength), "terrain.bump_wavelength"},
		{finite(c.Forcing.Rain) && c.Forcing.Rain >= 0, "forcing.rain"},
		{finite(c.Forcing.SeaLevel), "forcing.sea_level"},
		{finite(c.Forcing.Erodibility) && c.Forcing.Erodibility >= 0, "forcing.erodibility"},
		{positive(c.Forcing.TimeStep), "forcing.time_step"},
		{c.Forcing.Fanout >= 1, "forcing.fanout"},
		{positive(c.Fill.Epsilon), "fill.epsilon"},
		{finite(c.Fill.OceanMargin) && c.Fill.OceanMargin >= 0, "fill.ocean_margin"},
		{positive(c.Solver.Tolerance), "solver.tolerance"},
		{c.Solver.MaxIterations >= 1, "solver.max_iterations"},
		{c.Solver.Omega > 0 && c.Solver.Omega < 2, "solver.omega"},
		{finite(c.Erosion.SeaMargin), "erosion.sea_margin"},
		{finite(c.Erosion.DischargeExponent) && c.Erosion.DischargeExponent >= 0, "erosion.discharge_exponent"},
		{positive(c.Erosion.Tolerance), "erosion.tolerance"},
		{c.Erosion.MaxIterations >= 1, "erosion.max_iterations"},
		{c.Run.Steps >= 0, "run.steps"},
		{c.Run.Partitions >= 1 && c.Run.Partitions <= c.Mesh.Rows*c.Mesh.Cols, "run.partitions"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, ch.field)
		}
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

// Conn returns the mesh connectivity.
func (c *Config) Conn() mesh.Connectivity {
	if c.Mesh.Connectivity == "conn4" {
		return mesh.Conn4
	}

	return mesh.Conn8
}

// UniformForcing returns the forcing section as an engine.Forcing.
func (c *Config) UniformForcing() engine.UniformForcing {
	return engine.UniformForcing{
		Rain:   c.Forcing.Rain,
		Sea:    c.Forcing.SeaLevel,
		K:      c.Forcing.Erodibility,
		Dt:     c.Forcing.TimeStep,
		Fanout: c.Forcing.Fanout,
	}
}

// EngineOptions validates the configuration and maps it onto engine options.
func (c *Config) EngineOptions(logger *zap.Logger) ([]engine.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithFillOptions(
			pitfill.WithEpsilon(c.Fill.Epsilon),
			pitfill.WithOceanMargin(c.Fill.OceanMargin),
			pitfill.WithOpenBoundary(c.Fill.OpenBoundary),
		),
		engine.WithSolverOptions(
			solver.WithTolerance(c.Solver.Tolerance),
			solver.WithMaxIterations(c.Solver.MaxIterations),
			solver.WithOmega(c.Solver.Omega),
		),
		engine.WithErosionOptions(
			erosion.WithSeaMargin(c.Erosion.SeaMargin),
			erosion.WithDischargeExponent(c.Erosion.DischargeExponent),
			erosion.WithSolverOptions(
				solver.WithTolerance(c.Erosion.Tolerance),
				solver.WithMaxIterations(c.Erosion.MaxIterations),
			),
		),
	}, nil
}

// Logger builds a zap logger from the logging section.
func (c *Config) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	if verbose {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.Level = level
	zc.Encoding = strings.ToLower(c.Logging.Format)
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }
