package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
)

// errInvalid makes validate exit non-zero once the report is printed.
var errInvalid = errors.New("diagram is invalid")

// importFile reads path and imports it with the --format override.
func importFile(cmd *cobra.Command, ws *lattice.Workspace, path string) (codec.Imported, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return codec.Imported{}, err
	}
	format, err := inputFormat(cmd, path)
	if err != nil {
		return codec.Imported{}, err
	}
	return ws.ImportAs(cmd.Context(), format, path, data)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a diagram for structural errors",
		Long:  `Imports the diagram and reports missing events, disconnected elements, dangling flows and naming issues.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			imported, err := importFile(cmd, env.Workspace, args[0])
			if err != nil {
				return err
			}
			res := env.Workspace.Validate(cmd.Context(), imported.Diagram)

			if jsonOutput(cmd) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				out, err := renderer(cmd)(tui.ValidationMarkdown(imported.Diagram, res))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}

			if !res.IsValid {
				return fmt.Errorf("%w: %d error(s)", errInvalid, len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "Input format (json, yaml, bpmn); detected from the extension by default")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export <file>",
		Aliases: []string{"convert"},
		Short:   "Convert a diagram to another format",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			to, _ := cmd.Flags().GetString("to")
			target, err := codec.ParseFormat(to)
			if err != nil {
				return err
			}
			imported, err := importFile(cmd, env.Workspace, args[0])
			if err != nil {
				return err
			}
			if imported.Placeholder {
				return fmt.Errorf("%s could not be mapped to a diagram", args[0])
			}
			data, err := env.Workspace.Export(cmd.Context(), imported.Diagram, target)
			if err != nil {
				return err
			}
			return writeOutput(cmd, data)
		},
	}
	cmd.Flags().String("format", "", "Input format; detected from the extension by default")
	cmd.Flags().String("to", string(codec.FormatJSON), "Output format (json, yaml, bpmn)")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a diagram into a collection",
		Long: `Imports a JSON, YAML or BPMN file and stores it as a new entry.
Unreadable BPMN and YAML documents are stored as a Start, Task, End skeleton.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			imported, err := importFile(cmd, env.Workspace, args[0])
			if err != nil {
				return err
			}
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				imported.Diagram.Name = name
			}
			// An import always creates a new entry.
			imported.Diagram.ID = env.Workspace.NewDiagram(imported.Diagram.Name).ID

			collection, _ := cmd.Flags().GetString("collection")
			rec, err := env.Workspace.Save(cmd.Context(), collection, imported.Diagram)
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		},
	}
	cmd.Flags().String("format", "", "Input format; detected from the extension by default")
	cmd.Flags().String("collection", catalog.Processes, "Target collection (processes or templates)")
	cmd.Flags().String("name", "", "Override the diagram name")
	return cmd
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render a diagram as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			imported, err := importFile(cmd, env.Workspace, args[0])
			if err != nil {
				return err
			}

			var overlay *graph.Overlay
			if withOverlay, _ := cmd.Flags().GetBool("overlay"); withOverlay {
				overlay = graph.OverlayFromResult(env.Workspace.Validate(cmd.Context(), imported.Diagram))
			}
			return writeOutput(cmd, []byte(graph.GenerateMermaid(imported.Diagram, overlay)))
		},
	}
	cmd.Flags().String("format", "", "Input format; detected from the extension by default")
	cmd.Flags().Bool("overlay", false, "Highlight elements with validation issues")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout <file>",
		Short: "Recompute node positions and write the arranged diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			imported, err := importFile(cmd, env.Workspace, args[0])
			if err != nil {
				return err
			}
			env.Workspace.Layout(imported.Diagram)

			to, _ := cmd.Flags().GetString("to")
			if to == "" {
				to = string(imported.Format)
			}
			target, err := codec.ParseFormat(to)
			if err != nil {
				return err
			}
			data, err := env.Workspace.Export(cmd.Context(), imported.Diagram, target)
			if err != nil {
				return err
			}
			return writeOutput(cmd, data)
		},
	}
	cmd.Flags().String("format", "", "Input format; detected from the extension by default")
	cmd.Flags().String("to", "", "Output format; the input format by default")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}
