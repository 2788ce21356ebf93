package main

import (
	"fmt"
	"strings"

	"popgen/internal/config"
	"popgen/internal/stats"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [run-id]",
		Short: "Summarise one statistic of a run",
		Long: fmt.Sprintf(`Extract a per-generation statistic from a stored run and print its
summary. Use --series to print every generation.

Statistics: %s`, strings.Join(stats.Names(), ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stat, _ := cmd.Flags().GetString("stat")
			showSeries, _ := cmd.Flags().GetBool("series")
			return withClient(cmd, func(_ *config.Config, client *popgen.Client) error {
				result, err := client.Stats(cmd.Context(), popgen.StatsRequest{RunRef: runRef(cmd, args), Stat: stat})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "run_id=%s stat=%s generations=%d\n", result.RunID, stat, result.Series.Generations())
				for _, s := range result.Summaries {
					fmt.Fprintf(out, "label=%s mean=%.6f stddev=%.6f min=%.6f max=%.6f final=%.6f\n",
						s.Label, s.Mean, s.StdDev, s.Min, s.Max, s.Final)
				}
				if showSeries {
					printSeries(cmd, result.Series)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("stat", stats.StatAlleleFrequencies, "Statistic to extract")
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	cmd.Flags().Bool("series", false, "Print the value of every generation")
	return cmd
}

func printSeries(cmd *cobra.Command, series popgen.Series) {
	for g := 0; g < series.Generations(); g++ {
		fields := make([]string, 0, len(series.Labels))
		for _, label := range series.Labels {
			fields = append(fields, fmt.Sprintf("%s=%g", label, series.Values[label][g]))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generation=%d %s\n", g, strings.Join(fields, " "))
	}
}
