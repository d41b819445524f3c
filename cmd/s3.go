package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/utils"
)

func newS3Cmd() *cobra.Command {
	var outputPath string
	var profile string

	cmd := &cobra.Command{
		Use:   "s3 [BUCKET/KEY or s3://BUCKET/KEY]",
		Short: "Download files from AWS S3",
		Long: `Download files or folders from AWS S3.

Objects above the chunk threshold are fetched as ranged reads through the
same chunk pipeline as HTTP downloads.

Examples:
  mediafetch s3 mybucket/path/to/file.mp4
  mediafetch s3 s3://mybucket/path/to/folder/
  mediafetch s3 mybucket/file.mp4 --profile myprofile`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := newJob("s3", args[0], outputPath)
			job.Metadata["profile"] = cfg.S3Profile
			if cmd.Flags().Changed("profile") {
				job.Metadata["profile"] = profile
			}
			_, err := runJobs(cmd.Context(), []utils.FetchJob{job}, 1)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to use")
	return cmd
}
