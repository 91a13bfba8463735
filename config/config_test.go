package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/drainage/config"
	"github.com/katalvlaran/drainage/erosion"
	"github.com/katalvlaran/drainage/mesh"
	"github.com/katalvlaran/drainage/pitfill"
	"github.com/katalvlaran/drainage/solver"
)

func TestDefault_Valid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, pitfill.DefaultEpsilon, cfg.Fill.Epsilon)
	assert.Equal(t, solver.DefaultMaxIterations, cfg.Solver.MaxIterations)
	assert.Equal(t, mesh.Conn8, cfg.Conn())
	assert.Equal(t, erosion.DefaultSeaMargin, cfg.Erosion.SeaMargin)
	assert.Positive(t, cfg.Erosion.SeaMargin)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Mesh, cfg.Mesh)
}

func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := "mesh:\n  rows: 10\n  connectivity: conn4\nsolver:\n  tolerance: 1.0e-10\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Mesh.Rows)
	assert.Equal(t, config.Default().Mesh.Cols, cfg.Mesh.Cols, "unset keys keep defaults")
	assert.Equal(t, mesh.Conn4, cfg.Conn())
	assert.Equal(t, 1e-10, cfg.Solver.Tolerance)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mesh: [1, 2"), 0o644))
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DRAINSIM_PARTITIONS", "7")
	t.Setenv("DRAINSIM_STEPS", "3")
	t.Setenv("DRAINSIM_LOG_LEVEL", "debug")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Run.Partitions)
	assert.Equal(t, 3, cfg.Run.Steps)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.yaml")
	cfg := config.Default()
	cfg.Forcing.Erodibility = 2e-5
	cfg.Run.Steps = 5
	require.NoError(t, cfg.Save(path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"rows":         func(c *config.Config) { c.Mesh.Rows = 0 },
		"spacing":      func(c *config.Config) { c.Mesh.Spacing = -1 },
		"connectivity": func(c *config.Config) { c.Mesh.Connectivity = "hex" },
		"ocean_rows":   func(c *config.Config) { c.Terrain.OceanRows = c.Mesh.Rows },
		"time_step":    func(c *config.Config) { c.Forcing.TimeStep = 0 },
		"fanout":       func(c *config.Config) { c.Forcing.Fanout = 0 },
		"epsilon":      func(c *config.Config) { c.Fill.Epsilon = 0 },
		"omega":        func(c *config.Config) { c.Solver.Omega = 2 },
		"partitions":   func(c *config.Config) { c.Run.Partitions = 0 },
		"level":        func(c *config.Config) { c.Logging.Level = "loud" },
		"format":       func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), config.ErrInvalid)

			_, err := cfg.EngineOptions(nil)
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default()
	opts, err := cfg.EngineOptions(nil)
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	f := cfg.UniformForcing()
	assert.Equal(t, cfg.Forcing.SeaLevel, f.SeaLevel())
	assert.Equal(t, cfg.Forcing.Fanout, f.FlowDirectionFanout())
}

func TestLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	l, err := cfg.Logger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1), "info level hides debug")

	l, err = cfg.Logger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
