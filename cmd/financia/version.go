package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"financia/internal/snapshot"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "financia %s (schema v%d)\n", version, snapshot.SchemaVersion)
		},
	}
}
