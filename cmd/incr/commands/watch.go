package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the modules and report the files every change invalidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rebuild, _ := cmd.Flags().GetBool("rebuild")
			w := cmd.OutOrStdout()
			return c.app.Watch(cmd.Context(), app.WatchOptions{Rebuild: rebuild}, func(b app.WatchBatch) {
				writeBatch(w, b)
			})
		},
	}
	cmd.Flags().BoolP("rebuild", "r", false, "Build after every batch of changes")
	return cmd
}
