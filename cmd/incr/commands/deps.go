package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <file>",
		Short: "List what a file depended on in the last build, and what depended on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.app.Deps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeDeps(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
