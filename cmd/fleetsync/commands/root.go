// Package commands defines the CLI command structure and flag bindings.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the fleetsync CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleetsync",
		Short: "Reconcile the instance inventory against provider reality",
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Version())

	return cmd
}
