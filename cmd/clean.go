package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/output"
	"github.com/tanq16/mediafetch/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove leftover chunk directories",
		Long:  "Remove the " + utils.TempDirName + " directory next to the given output path (or inside the given directory).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			if err := utils.Clean(target); err != nil {
				return fmt.Errorf("error cleaning temporary files: %w", err)
			}
			output.PrintSuccess("Temporary files cleaned up")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			output.PrintInfo("mediafetch " + MediafetchVersion)
		},
	}
}
