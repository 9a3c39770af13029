package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lattice",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lattice version %s\n", lattice.Version)
		},
	}
}
