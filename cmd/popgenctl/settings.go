package main

import (
	"encoding/json"

	"popgen/internal/config"
	"popgen/internal/logging"
	"popgen/pkg/popgen"

	"github.com/spf13/cobra"
)

// loadSettings resolves the configuration in order: defaults, config file,
// POPGEN_* environment, then explicitly set persistent flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("db-path") {
		cfg.Store.DBPath, _ = flags.GetString("db-path")
	}
	if flags.Changed("artifacts-dir") {
		cfg.Store.ArtifactsDir, _ = flags.GetString("artifacts-dir")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	return cfg, nil
}

func newClient(cmd *cobra.Command, cfg *config.Config) (*popgen.Client, error) {
	return popgen.New(popgen.Options{
		StoreKind:    cfg.Store.Kind,
		DBPath:       cfg.Store.DBPath,
		ArtifactsDir: cfg.Store.ArtifactsDir,
		Logger:       logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()),
	})
}

// withClient loads settings, opens a client and closes it after fn returns.
func withClient(cmd *cobra.Command, fn func(*config.Config, *popgen.Client) error) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(cfg, client)
}

func runRef(cmd *cobra.Command, args []string) popgen.RunRef {
	latest, _ := cmd.Flags().GetBool("latest")
	ref := popgen.RunRef{Latest: latest}
	if len(args) > 0 {
		ref.RunID = args[0]
	}
	return ref
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
