package main

import (
	"fmt"
	"strings"

	"popgen/internal/config"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withClient(cmd, func(_ *config.Config, client *popgen.Client) error {
				runs, err := client.Runs(cmd.Context(), popgen.RunsRequest{Limit: limit})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "no runs found")
					return nil
				}
				for _, r := range runs {
					fmt.Fprintf(out, "run_id=%s created_at=%s alleles=%s sexed=%t gens=%d initial_size=%d final_size=%d extinct=%t\n",
						r.RunID, r.CreatedAtUTC, strings.Join(r.Alleles, ","), r.Sexed,
						r.Generations, r.InitialSize, r.FinalSize, r.Extinct)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}
