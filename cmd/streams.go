package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/mux"
	"github.com/tanq16/mediafetch/internal/output"
	"github.com/tanq16/mediafetch/internal/streams"
	"github.com/tanq16/mediafetch/internal/utils"
)

func newStreamsCmd() *cobra.Command {
	var outputPath string
	var quality []string
	var codec []string
	var noMux bool
	var useDelegate bool

	cmd := &cobra.Command{
		Use:   "streams [CANDIDATES_FILE] [--output OUTPUT_PATH]",
		Short: "Pick the best video and audio stream from a candidates file and download both",
		Long: `Pick one video and one audio stream from a YAML or JSON candidates file,
download both and join them with ffmpeg.

Video is chosen by quality and codec preference, then quality alone, then the
highest bandwidth. Audio is always the highest bandwidth.

  streams:
    - {kind: video, quality: 1080p, codec: avc, bandwidth: 4500000, url: https://...}
    - {kind: audio, quality: 192k, codec: mp4a, bandwidth: 192000, url: https://...}
  preferences:
    quality: [1080p, 720p]
    codec: [avc, hevc]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates, prefs, err := streams.LoadFile(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("quality") {
				prefs.Quality = quality
			}
			if cmd.Flags().Changed("codec") {
				prefs.Codec = codec
			}
			video, audio, err := streams.Select(candidates, prefs)
			if err != nil {
				return err
			}
			output.PrintDetail(fmt.Sprintf("Selected %s", video))
			output.PrintDetail(fmt.Sprintf("Selected %s", audio))

			if _, err := os.Stat(outputPath); err == nil && !overwrite {
				outputPath = utils.RenewOutputPath(outputPath)
			}
			base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
			jobs := []utils.FetchJob{
				streamJob(video, base+".video.m4s"),
				streamJob(audio, base+".audio.m4s"),
			}
			for i := range jobs {
				jobs[i].UseDelegate = useDelegate
			}
			results, err := runJobs(cmd.Context(), jobs, 2)
			if err != nil {
				return err
			}
			if noMux {
				output.PrintSuccess(fmt.Sprintf("Kept %s and %s", results[0].Output, results[1].Output))
				return nil
			}
			muxer := &mux.Muxer{Binary: cfg.FFmpegBinary}
			if err := muxer.Mux(cmd.Context(), results[0].Output, results[1].Output, outputPath); err != nil {
				log.Error().Str("op", "cmd/streams").Err(err).Msg("mux failed, keeping separate tracks")
				return fmt.Errorf("mux failed (tracks kept at %s and %s): %w", results[0].Output, results[1].Output, err)
			}
			output.PrintSuccess(fmt.Sprintf("Saved %s", outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "output.mp4", "Output file path")
	cmd.Flags().StringSliceVar(&quality, "quality", nil, "Quality preference order (eg. 1080p,720p)")
	cmd.Flags().StringSliceVar(&codec, "codec", nil, "Codec preference order (eg. avc,hevc)")
	cmd.Flags().BoolVar(&noMux, "no-mux", false, "Keep the video and audio tracks as separate files")
	cmd.Flags().BoolVar(&useDelegate, "delegate", false, "Download with the external accelerator (falls back to streaming)")
	return cmd
}

func streamJob(s streams.Stream, outputPath string) utils.FetchJob {
	job := newJob("http", s.URL, outputPath)
	job.KnownSize = s.Size
	job.Overwrite = true
	job.Label = fmt.Sprintf("%s %s", s.Kind, filepath.Base(outputPath))
	return job
}
