package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/utils"
)

func newHTTPCmd() *cobra.Command {
	var outputPath string
	var useDelegate bool
	var knownSize string

	cmd := &cobra.Command{
		Use:   "http [URL] [--output OUTPUT_PATH]",
		Short: "Download a file via HTTP/HTTPS",
		Long: `Download a file via HTTP/HTTPS.

The download method follows what the server reports: unknown size is fetched
in one request, large files with range support are split into chunks, and
everything else is streamed. --delegate hands the download to aria2c when it
is installed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := newJob("http", args[0], outputPath)
			if strings.HasPrefix(args[0], "s3://") {
				job.JobType = "s3"
				job.Metadata["profile"] = cfg.S3Profile
			}
			job.UseDelegate = useDelegate
			if knownSize != "" {
				size, err := parseSize(knownSize)
				if err != nil {
					return err
				}
				job.KnownSize = size
			}
			_, err := runJobs(cmd.Context(), []utils.FetchJob{job}, 1)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	cmd.Flags().BoolVar(&useDelegate, "delegate", false, "Download with the external accelerator (falls back to streaming)")
	cmd.Flags().StringVar(&knownSize, "size", "", "Total size when already known and the server omits Content-Length")
	return cmd
}
