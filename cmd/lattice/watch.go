package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/tui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Revalidate a diagram every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{Quiet: true})
			if err != nil {
				return err
			}
			defer env.Close()

			tui.PrintBanner(cmd.ErrOrStderr())
			debounce, _ := cmd.Flags().GetDuration("debounce")

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			return cli.RunWatch(sigCtx, env.Workspace, cli.WatchOptions{
				Path:     args[0],
				Debounce: debounce,
				Render:   renderer(cmd),
				Out:      cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().Duration("debounce", 0, "Quiet period before revalidating (default 200ms)")
	return cmd
}
