package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/codec"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lattice",
		Short: "Lattice models, validates and stores business process diagrams",
		Long: `Lattice is the core of a process console: it validates BPMN-style diagrams,
converts them between JSON, YAML and BPMN 2.0 XML, and keeps them in a catalog
of processes and templates.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "Path to the configuration file (default "+config.DefaultFile+")")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")
	root.PersistentFlags().String("store", "", "Store driver: memory, file, sqlite or redis")
	root.PersistentFlags().String("data", "", "Store path (file directory or sqlite database)")
	root.PersistentFlags().Bool("json", false, "Print machine-readable JSON")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress notifications")

	root.AddCommand(
		newValidateCmd(),
		newExportCmd(),
		newImportCmd(),
		newGraphCmd(),
		newLayoutCmd(),
		newProcessCmd(),
		newWatchCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Driver = v
	}
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.Store.Path = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg, cfg.Validate()
}

// openEnv builds the workspace for a command. Notifications go to stderr.
func openEnv(cmd *cobra.Command, opts cli.EnvOptions) (*cli.Env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		opts.Quiet = true
	}
	if opts.Notices == nil {
		opts.Notices = cmd.ErrOrStderr()
	}
	return cli.OpenWithConfig(cfg, opts)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// inputFormat resolves --format, falling back to the file extension.
func inputFormat(cmd *cobra.Command, path string) (codec.Format, error) {
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		return codec.ParseFormat(name)
	}
	if path == "-" {
		return codec.FormatJSON, nil
	}
	return codec.DetectFormat(path)
}

// writeOutput writes data to the --output file, or to the command output.
func writeOutput(cmd *cobra.Command, data []byte) error {
	out, _ := cmd.Flags().GetString("output")
	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}

// renderer styles markdown when the command writes to an interactive stdout.
func renderer(cmd *cobra.Command) func(string) (string, error) {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return tui.NewRenderer(f.Fd())
	}
	return func(markdown string) (string, error) { return markdown, nil }
}
