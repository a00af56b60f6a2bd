package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project, reprocessing only what changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			report, err := c.app.Build(cmd.Context(), app.BuildOptions{Force: force})
			if report != nil {
				writeReport(cmd.OutOrStdout(), "build", report)
			}
			return err
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Discard the whole cache and rebuild everything")
	return cmd
}

func (c *CLI) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show what the next build would reprocess, without building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Check(cmd.Context())
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), "check", report)
			return nil
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the cache, output and log directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := c.app.Clean(cmd.Context())
			writeRemoved(cmd.OutOrStdout(), removed)
			return err
		},
	}
}
