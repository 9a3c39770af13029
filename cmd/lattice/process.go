package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/entity"
)

// row is the listing view shared by every collection.
type row struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "process",
		Aliases: []string{"proc"},
		Short:   "Manage stored processes, templates and other catalog entries",
	}
	cmd.PersistentFlags().StringP("collection", "c", catalog.Processes, "Collection to operate on")

	cmd.AddCommand(
		newProcessSaveCmd(),
		newProcessListCmd(),
		newProcessShowCmd(),
		newProcessDeleteCmd(),
		newProcessSearchCmd(),
		newProcessInstantiateCmd(),
		newProcessSeedCmd(),
	)
	return cmd
}

func newProcessSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Store a diagram, replacing the entry with the same id",
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
			if imported.Placeholder {
				return fmt.Errorf("%s could not be mapped to a diagram", args[0])
			}
			collection, _ := cmd.Flags().GetString("collection")
			rec, err := env.Workspace.Save(cmd.Context(), collection, imported.Diagram)
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		},
	}
	cmd.Flags().String("format", "", "Input format; detected from the extension by default")
	return cmd
}

func newProcessListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the entries of a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, func(c catalog.Collection) error {
				items, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				return printItems(cmd, items)
			})
		},
	}
}

func newProcessSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Find entries by name or description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q entity.Query
			if len(args) > 0 {
				q.Text = args[0]
			}
			status, _ := cmd.Flags().GetString("status")
			q.Status = domain.Status(status)
			q.CreatedBy, _ = cmd.Flags().GetString("created-by")
			q.Limit, _ = cmd.Flags().GetInt("limit")

			return withCollection(cmd, func(c catalog.Collection) error {
				items, err := c.Search(cmd.Context(), q)
				if err != nil {
					return err
				}
				return printItems(cmd, items)
			})
		},
	}
	cmd.Flags().String("status", "", "Only entries with this status")
	cmd.Flags().String("created-by", "", "Only entries created by this user")
	cmd.Flags().Int("limit", 0, "Maximum number of results (0 for all)")
	return cmd
}

func newProcessShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print an entry; diagrams can be exported with --format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				return withCollection(cmd, func(c catalog.Collection) error {
					item, err := c.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), item)
				})
			}

			target, err := codec.ParseFormat(format)
			if err != nil {
				return err
			}
			env, err := openEnv(cmd, cli.EnvOptions{Quiet: true})
			if err != nil {
				return err
			}
			defer env.Close()

			d, err := env.Workspace.Load(cmd.Context(), collection, args[0])
			if err != nil {
				return err
			}
			data, err := env.Workspace.Export(cmd.Context(), d, target)
			if err != nil {
				return err
			}
			return writeOutput(cmd, data)
		},
	}
	cmd.Flags().String("format", "", "Export a stored diagram as json, yaml or bpmn")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newProcessDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCollection(cmd, func(c catalog.Collection) error {
				if err := c.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", c.Name(), args[0])
				return nil
			})
		},
	}
}

func newProcessInstantiateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instantiate <template-id> <name>",
		Short: "Create a draft process from a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{})
			if err != nil {
				return err
			}
			defer env.Close()

			d, err := env.Workspace.Instantiate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printRecord(cmd, catalog.RecordFromDiagram(d))
		},
	}
}

func newProcessSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the starter templates to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{Quiet: true})
			if err != nil {
				return err
			}
			defer env.Close()

			added, err := cli.SeedTemplates(cmd.Context(), env.Workspace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d template(s)\n", added)
			return nil
		},
	}
}

// withCollection opens the workspace and resolves the --collection flag.
func withCollection(cmd *cobra.Command, fn func(catalog.Collection) error) error {
	env, err := openEnv(cmd, cli.EnvOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer env.Close()

	name, _ := cmd.Flags().GetString("collection")
	c, err := env.Workspace.Catalog().Collection(name)
	if err != nil {
		return err
	}
	return fn(c)
}

func printRecord(cmd *cobra.Command, rec catalog.ProcessRecord) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (%d nodes, %d edges)\n", rec.ID, rec.Name, len(rec.Nodes), len(rec.Edges))
	return nil
}

// printItems writes a listing as JSON or as an aligned table.
func printItems(cmd *cobra.Command, items any) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, items)
	}

	// Every collection shares the entity header; decode just that.
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No entries.")
		return nil
	}

	r := lipgloss.NewRenderer(out)
	header := r.NewStyle().Bold(true)
	dim := r.NewStyle().Foreground(lipgloss.Color("240"))

	fmt.Fprintf(out, "%s\n", header.Render(fmt.Sprintf("%-36s  %-28s  %-10s  %s", "ID", "NAME", "STATUS", "UPDATED")))
	for _, e := range rows {
		fmt.Fprintf(out, "%-36s  %-28s  %-10s  %s\n",
			e.ID, truncate(e.Name, 28), e.Status, dim.Render(e.UpdatedAt.Format(time.DateTime)))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
