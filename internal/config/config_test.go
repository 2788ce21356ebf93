package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"popgen/internal/genotype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "popgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Generations)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Nil(t, cfg.Simulation.CarryingCapacity)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
generations: 25
seed: 7
simulation:
  growth_rate: 1.1
  carrying_capacity: 500
  max_drift: 0.05
  mutation_rate: 0.001
population:
  alleles: [A, B, C]
  size: 300
  sexed: true
  fitness:
    AA: 1.2
bottleneck:
  generation: 10
  size: 20
logging:
  level: debug
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 25, cfg.Generations)
	assert.Equal(t, uint64(7), cfg.Seed)
	require.NotNil(t, cfg.Simulation.CarryingCapacity)
	assert.Equal(t, 500, *cfg.Simulation.CarryingCapacity)
	require.NotNil(t, cfg.Simulation.MutationRate)
	assert.InDelta(t, 0.001, *cfg.Simulation.MutationRate, 1e-12)
	assert.Equal(t, []string{"A", "B", "C"}, cfg.Population.Alleles)
	assert.True(t, cfg.Population.Sexed)
	assert.Equal(t, 1.2, cfg.Population.Fitness["AA"])
	require.NotNil(t, cfg.Bottleneck)
	assert.Equal(t, BottleneckConfig{Generation: 10, Size: 20}, *cfg.Bottleneck)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset fields keep their defaults")
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, "generations: 25\n")
	t.Setenv("POPGEN_GENERATIONS", "40")
	t.Setenv("POPGEN_CARRYING_CAPACITY", "75")
	t.Setenv("POPGEN_STORE", "sqlite")
	t.Setenv("POPGEN_LOG_LEVEL", "trace")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Generations)
	require.NotNil(t, cfg.Simulation.CarryingCapacity)
	assert.Equal(t, 75, *cfg.Simulation.CarryingCapacity)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("POPGEN_SEED", "not-a-number")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "generations: [1, 2\n"))
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Generations = -1
	cfg.Simulation.MaxDrift = 2
	cfg.Store.Kind = "postgres"
	cfg.Logging.Level = "loud"
	cfg.Population.Alleles = nil

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"generations", "max_drift", "store kind", "log level", "population"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.True(t, errors.Is(err, genotype.ErrInvalidData))
}
