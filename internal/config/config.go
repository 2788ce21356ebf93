// Package config loads popgenctl run configuration from YAML files with
// POPGEN_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"popgen/internal/genotype"
	"popgen/internal/storage"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is a complete description of one simulation run.
type Config struct {
	// Simulation holds the per-generation parameters.
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Population describes the starting genotype data.
	Population genotype.GenerateConfig `yaml:"population" json:"population"`

	// Bottleneck optionally forces a reduced size at one generation.
	Bottleneck *BottleneckConfig `yaml:"bottleneck,omitempty" json:"bottleneck,omitempty"`

	Generations int    `yaml:"generations" json:"generations" env:"POPGEN_GENERATIONS"`
	Seed        uint64 `yaml:"seed" json:"seed" env:"POPGEN_SEED"`

	Store   StoreConfig   `yaml:"store" json:"store"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

type SimulationConfig struct {
	GrowthRate       float64  `yaml:"growth_rate" json:"growth_rate" env:"POPGEN_GROWTH_RATE"`
	CarryingCapacity *int     `yaml:"carrying_capacity,omitempty" json:"carrying_capacity,omitempty" env:"POPGEN_CARRYING_CAPACITY"`
	MaxDrift         float64  `yaml:"max_drift" json:"max_drift" env:"POPGEN_MAX_DRIFT"`
	MutationRate     *float64 `yaml:"mutation_rate,omitempty" json:"mutation_rate,omitempty" env:"POPGEN_MUTATION_RATE"`
}

type BottleneckConfig struct {
	Generation int `yaml:"generation" json:"generation"`
	Size       int `yaml:"size" json:"size"`
}

type StoreConfig struct {
	// Kind is "memory" or "sqlite".
	Kind         string `yaml:"kind" json:"kind" env:"POPGEN_STORE"`
	DBPath       string `yaml:"db_path" json:"db_path" env:"POPGEN_DB_PATH"`
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir" env:"POPGEN_ARTIFACTS_DIR"`
}

type LoggingConfig struct {
	// Level is "error", "warn", "info" (default), "debug" or "trace".
	Level string `yaml:"level" json:"level" env:"POPGEN_LOG_LEVEL"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format" json:"format" env:"POPGEN_LOG_FORMAT"`
}

// Default returns a neutral two-allele run of 100 generations at constant
// size.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			MaxDrift: 0.1,
		},
		Population: genotype.GenerateConfig{
			Alleles: []string{"A", "a"},
			Size:    100,
			Mode:    genotype.ModeHardyWeinberg,
		},
		Generations: 100,
		Seed:        1,
		Store: StoreConfig{
			Kind:         storage.DefaultStoreKind(),
			DBPath:       "popgen.db",
			ArtifactsDir: "popgen_artifacts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any POPGEN_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration before a run is started.
func (c *Config) Validate() error {
	var errs []error
	if c.Generations < 0 {
		errs = append(errs, fmt.Errorf("generations must be >= 0, got %d", c.Generations))
	}
	if c.Simulation.MaxDrift < 0 || c.Simulation.MaxDrift > 1 {
		errs = append(errs, fmt.Errorf("max_drift must be between 0 and 1, got %g", c.Simulation.MaxDrift))
	}
	if c.Simulation.CarryingCapacity != nil && *c.Simulation.CarryingCapacity < 0 {
		errs = append(errs, fmt.Errorf("carrying_capacity must be >= 0, got %d", *c.Simulation.CarryingCapacity))
	}
	if mu := c.Simulation.MutationRate; mu != nil && (*mu < 0 || *mu > 1) {
		errs = append(errs, fmt.Errorf("mutation_rate must be between 0 and 1, got %g", *mu))
	}
	if c.Bottleneck != nil {
		if c.Bottleneck.Generation < 0 || c.Bottleneck.Size < 0 {
			errs = append(errs, fmt.Errorf("bottleneck generation and size must be >= 0"))
		}
	}
	switch c.Store.Kind {
	case storage.KindMemory, storage.KindSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid store kind: %s (valid: memory, sqlite)", c.Store.Kind))
	}
	validLevels := map[string]bool{"": true, "error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}
	if err := c.Population.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("population: %w", err))
	}
	return errors.Join(errs...)
}
