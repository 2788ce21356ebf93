// Package simulation drives a population through discrete generations by
// applying fitness, drift, an optional bottleneck, reproduction and
// mutation in a fixed order, recording the genotype data that enters each
// generation.
//
// A Simulator is owned by a single goroutine. It holds unsynchronised
// mutable state and must not be used concurrently.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"popgen/internal/evo"
	"popgen/internal/genotype"
	"popgen/internal/logging"
	"popgen/internal/sampling"
)

// State is the lifecycle stage of a Simulator.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	default:
		return "uninitialized"
	}
}

// Params are the evolutionary parameters. They may be changed between
// calls through SetParams.
type Params struct {
	// GrowthRate is the per-generation relative growth; 0 keeps N constant.
	GrowthRate float64 `json:"growth_rate" yaml:"growth_rate"`
	// CarryingCapacity caps N when set.
	CarryingCapacity *int `json:"carrying_capacity,omitempty" yaml:"carrying_capacity"`
	// MaxDrift scales drift noise, in [0,1]. 0 disables drift.
	MaxDrift float64 `json:"max_drift" yaml:"max_drift"`
	// MutationRate is the per-allele-copy flip probability. Nil disables
	// mutation.
	MutationRate *float64 `json:"mutation_rate,omitempty" yaml:"mutation_rate"`
}

func (p Params) Validate() error {
	if math.IsNaN(p.GrowthRate) || math.IsInf(p.GrowthRate, 0) {
		return genotype.Invalidf("growth rate %v is not finite", p.GrowthRate)
	}
	if p.CarryingCapacity != nil && *p.CarryingCapacity < 0 {
		return genotype.Invalidf("carrying capacity must be >= 0, got %d", *p.CarryingCapacity)
	}
	if math.IsNaN(p.MaxDrift) || p.MaxDrift < 0 || p.MaxDrift > 1 {
		return genotype.Invalidf("max drift %v is outside [0,1]", p.MaxDrift)
	}
	if p.MutationRate != nil && (math.IsNaN(*p.MutationRate) || *p.MutationRate < 0 || *p.MutationRate > 1) {
		return genotype.Invalidf("mutation rate %v is outside [0,1]", *p.MutationRate)
	}
	return nil
}

// Bottleneck forces the next generation down to Size individuals after
// generation Generation, if that is below the natural next size.
type Bottleneck struct {
	Generation int `json:"generation" yaml:"generation"`
	Size       int `json:"size" yaml:"size"`
}

type Config struct {
	Params Params
	// Rand is the shared random source. Nil seeds one from Seed.
	Rand *rand.Rand
	Seed uint64
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

type Simulator struct {
	params  Params
	rng     *rand.Rand
	logger  *slog.Logger
	state   State
	current genotype.Data
	history []genotype.Data
}

func New(cfg Config) *Simulator {
	rng := cfg.Rand
	if rng == nil {
		rng = sampling.NewRand(cfg.Seed)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Simulator{
		params: cfg.Params,
		rng:    rng,
		logger: logger,
	}
}

func (s *Simulator) Params() Params {
	return s.params
}

func (s *Simulator) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *Simulator) State() State {
	return s.state
}

// SetData installs the genotype data entering the next generation. It does
// not clear history.
func (s *Simulator) SetData(data genotype.Data) error {
	if err := data.Validate(); err != nil {
		return err
	}
	s.current = data.Clone()
	s.state = StateReady
	return nil
}

// Data returns a copy of the current genotype data.
func (s *Simulator) Data() (genotype.Data, bool) {
	if s.state == StateUninitialized {
		return genotype.Data{}, false
	}
	return s.current.Clone(), true
}

// Reset drops the current data and the history.
func (s *Simulator) Reset() {
	s.current = genotype.Data{}
	s.history = nil
	s.state = StateUninitialized
}

// Run advances generations times and returns the full history, including
// snapshots recorded by earlier calls.
func (s *Simulator) Run(generations int, bottleneck *Bottleneck) ([]genotype.Data, error) {
	if s.state == StateUninitialized {
		return nil, &genotype.MissingDataError{Op: "run"}
	}
	if generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0, got %d", generations)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	if bottleneck != nil && bottleneck.Size < 0 {
		return nil, genotype.Invalidf("bottleneck size must be >= 0, got %d", bottleneck.Size)
	}

	s.logger.Info("simulation run", "generations", generations, "start", len(s.history))
	for i := 0; i < generations; i++ {
		if err := s.CalcGeneration(i, bottleneck); err != nil {
			return nil, fmt.Errorf("generation %d: %w", i, err)
		}
	}
	return s.History(), nil
}

// CalcGeneration records the current data and replaces it with the next
// generation. On error the history and current data are left as they were.
func (s *Simulator) CalcGeneration(i int, bottleneck *Bottleneck) error {
	if s.state == StateUninitialized {
		return &genotype.MissingDataError{Op: "calc generation"}
	}
	s.state = StateRunning
	defer func() { s.state = StateReady }()

	s.history = append(s.history, s.current)
	next, err := s.step(i, s.current, bottleneck)
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return err
	}
	s.current = next
	return nil
}

func (s *Simulator) step(i int, current genotype.Data, bottleneck *Bottleneck) (genotype.Data, error) {
	n, err := evo.CurrentSize(current)
	if err != nil {
		return genotype.Data{}, err
	}
	nextN := evo.NextSize(n, s.params.GrowthRate, s.params.CarryingCapacity)

	current, err = evo.AdjustByFitness(current)
	if err != nil {
		return genotype.Data{}, fmt.Errorf("fitness: %w", err)
	}
	current, err = evo.AdjustByDrift(current, s.params.MaxDrift, current.Total(), s.params.CarryingCapacity, s.rng)
	if err != nil {
		return genotype.Data{}, fmt.Errorf("drift: %w", err)
	}

	if bottleneck != nil && i == bottleneck.Generation && nextN > bottleneck.Size {
		rate := 1 - float64(bottleneck.Size)/float64(nextN)
		s.logger.Info("bottleneck", "generation", i, "natural_size", nextN, "size", bottleneck.Size, "drift", rate)
		current, err = evo.AdjustByDrift(current, rate, bottleneck.Size, s.params.CarryingCapacity, s.rng)
		if err != nil {
			return genotype.Data{}, fmt.Errorf("bottleneck drift: %w", err)
		}
		nextN = bottleneck.Size
	}

	next, err := evo.Synthesize(current, nextN, s.rng)
	if err != nil {
		return genotype.Data{}, fmt.Errorf("synthesize: %w", err)
	}
	next, err = evo.AdjustByMutation(next, s.params.MutationRate, s.rng)
	if err != nil {
		return genotype.Data{}, fmt.Errorf("mutation: %w", err)
	}
	s.logger.Debug("generation", "index", i, "size", n, "next_size", nextN)
	if s.logger.Enabled(context.Background(), logging.LevelTrace) {
		s.logger.Log(context.Background(), logging.LevelTrace, "generation counts", "index", i, "counts", countsAttr(next))
	}
	return next, nil
}

func countsAttr(data genotype.Data) map[string]int {
	out := make(map[string]int, len(data.Entries))
	for _, e := range data.Entries {
		out[e.Genotype.Key()] = e.Count
	}
	return out
}
