package main

import (
	"fmt"
	"strconv"
	"strings"

	"popgen/internal/config"
	"popgen/internal/genotype"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a population and store the run",
		Long: `Generate an initial population, simulate it for the configured number
of generations and store the run with its artifacts.

Flags override values from --config and the POPGEN_* environment.`,
		Example: `  popgenctl run --alleles A,a --frequencies 0.7,0.3 --size 200 --generations 50
  popgenctl run --config run.yaml --bottleneck-generation 10 --bottleneck-size 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(cfg *config.Config, client *popgen.Client) error {
				if err := applyRunFlags(cmd, cfg); err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				summary, err := client.Run(cmd.Context(), requestFromConfig(cfg))
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, summary)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "run_id=%s generations=%d initial_size=%d final_size=%d extinct=%t\n",
					summary.RunID, cfg.Generations, summary.InitialSize, summary.FinalSize, summary.Extinct)
				fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
				return nil
			})
		},
	}

	cmd.Flags().Int("generations", 0, "Number of generations to simulate")
	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().Float64("growth-rate", 0, "Per-generation growth rate r (N' = N*(1+r))")
	cmd.Flags().Int("capacity", 0, "Carrying capacity")
	cmd.Flags().Float64("max-drift", 0, "Maximum drift rate in [0,1]")
	cmd.Flags().Float64("mutation-rate", 0, "Per-allele mutation rate in [0,1]")
	cmd.Flags().Int("bottleneck-generation", 0, "Generation at which the bottleneck applies")
	cmd.Flags().Int("bottleneck-size", 0, "Population size forced by the bottleneck")
	cmd.Flags().StringSlice("alleles", nil, "Allele symbols, e.g. A,a")
	cmd.Flags().Float64Slice("frequencies", nil, "Allele frequencies matching --alleles")
	cmd.Flags().Int("size", 0, "Initial population size")
	cmd.Flags().String("mode", "", "Initial genotype mode: hardy_weinberg or homozygous")
	cmd.Flags().Bool("sexed", false, "Track male and female counts separately")
	cmd.Flags().Bool("stochastic", false, "Draw the initial counts instead of apportioning them")
	cmd.Flags().StringToString("fitness", nil, "Fitness per genotype, e.g. AA=1.1,aa=0.8")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("generations") {
		cfg.Generations, _ = flags.GetInt("generations")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("growth-rate") {
		cfg.Simulation.GrowthRate, _ = flags.GetFloat64("growth-rate")
	}
	if flags.Changed("capacity") {
		capacity, _ := flags.GetInt("capacity")
		cfg.Simulation.CarryingCapacity = &capacity
	}
	if flags.Changed("max-drift") {
		cfg.Simulation.MaxDrift, _ = flags.GetFloat64("max-drift")
	}
	if flags.Changed("mutation-rate") {
		rate, _ := flags.GetFloat64("mutation-rate")
		cfg.Simulation.MutationRate = &rate
	}
	if flags.Changed("bottleneck-generation") != flags.Changed("bottleneck-size") {
		return fmt.Errorf("--bottleneck-generation and --bottleneck-size must be set together")
	}
	if flags.Changed("bottleneck-generation") {
		generation, _ := flags.GetInt("bottleneck-generation")
		size, _ := flags.GetInt("bottleneck-size")
		cfg.Bottleneck = &config.BottleneckConfig{Generation: generation, Size: size}
	}
	if flags.Changed("alleles") {
		cfg.Population.Alleles, _ = flags.GetStringSlice("alleles")
		cfg.Population.AlleleFrequencies = nil
		cfg.Population.GenotypeCounts = nil
	}
	if flags.Changed("frequencies") {
		cfg.Population.AlleleFrequencies, _ = flags.GetFloat64Slice("frequencies")
	}
	if flags.Changed("size") {
		cfg.Population.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("mode") {
		mode, _ := flags.GetString("mode")
		cfg.Population.Mode = genotype.Mode(strings.ToLower(mode))
	}
	if flags.Changed("sexed") {
		cfg.Population.Sexed, _ = flags.GetBool("sexed")
	}
	if flags.Changed("stochastic") {
		cfg.Population.Stochastic, _ = flags.GetBool("stochastic")
	}
	if flags.Changed("fitness") {
		raw, _ := flags.GetStringToString("fitness")
		fitness, err := parseFitness(raw)
		if err != nil {
			return err
		}
		cfg.Population.Fitness = fitness
	}
	return nil
}

func parseFitness(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for key, value := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("fitness for %s: invalid value %q", key, value)
		}
		out[key] = f
	}
	return out, nil
}

func requestFromConfig(cfg *config.Config) popgen.RunRequest {
	req := popgen.RunRequest{
		Population:       cfg.Population,
		Generations:      cfg.Generations,
		Seed:             cfg.Seed,
		GrowthRate:       cfg.Simulation.GrowthRate,
		CarryingCapacity: cfg.Simulation.CarryingCapacity,
		MaxDrift:         cfg.Simulation.MaxDrift,
		MutationRate:     cfg.Simulation.MutationRate,
	}
	if cfg.Bottleneck != nil {
		req.Bottleneck = &popgen.Bottleneck{Generation: cfg.Bottleneck.Generation, Size: cfg.Bottleneck.Size}
	}
	return req
}
