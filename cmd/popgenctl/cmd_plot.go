package main

import (
	"fmt"

	"popgen/internal/config"
	"popgen/internal/stats"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plot [run-id]",
		Short:   "Render one statistic of a run as a line chart",
		Example: "  popgenctl plot --latest --stat genotype_frequencies --out freqs.svg",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stat, _ := cmd.Flags().GetString("stat")
			out, _ := cmd.Flags().GetString("out")
			return withClient(cmd, func(_ *config.Config, client *popgen.Client) error {
				path, err := client.Plot(cmd.Context(), popgen.PlotRequest{RunRef: runRef(cmd, args), Stat: stat, Out: out})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, map[string]string{"path": path})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "plot=%s\n", path)
				return err
			})
		},
	}
	cmd.Flags().String("stat", stats.StatAlleleFrequencies, "Statistic to plot")
	cmd.Flags().String("out", "popgen.png", "Output image; format follows the extension (png, svg, pdf, ...)")
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	return cmd
}
