package main

import (
	"fmt"

	"popgen/internal/config"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Copy the artifacts of a run into an output directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")
			return withClient(cmd, func(_ *config.Config, client *popgen.Client) error {
				summary, err := client.Export(cmd.Context(), popgen.ExportRequest{RunRef: runRef(cmd, args), OutDir: outDir})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd, summary)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s export_dir=%s\n", summary.RunID, summary.Directory)
				return err
			})
		},
	}
	cmd.Flags().String("out", "", "Export directory (default exports)")
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	return cmd
}
