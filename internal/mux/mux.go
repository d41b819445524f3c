package mux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/downloaders/external"
)

const DefaultBinary = "ffmpeg"

// Muxer joins a separately downloaded video and audio track with a stream
// copy; nothing is re-encoded.
type Muxer struct {
	Binary string
}

func (m *Muxer) binary() string {
	if m.Binary == "" {
		return DefaultBinary
	}
	return m.Binary
}

func Args(videoPath, audioPath, outputPath string) []string {
	return []string{"-y", "-i", videoPath, "-i", audioPath, "-c", "copy", outputPath}
}

// Mux writes outputPath and removes both inputs once ffmpeg succeeded.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	path, err := external.ResolveBinary(m.binary())
	if err != nil {
		return err
	}
	args := Args(videoPath, audioPath, outputPath)
	log.Debug().Str("op", "mux/mux").Msgf("executing %s", shellescape.QuoteCommand(append([]string{path}, args...)))
	cmd := exec.CommandContext(ctx, path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg error: %w\nOutput: %s", err, strings.TrimSpace(string(out)))
	}
	for _, input := range []string{videoPath, audioPath} {
		if err := os.Remove(input); err != nil {
			log.Warn().Str("op", "mux/mux").Err(err).Msgf("could not remove %s", input)
		}
	}
	log.Info().Str("op", "mux/mux").Msgf("muxed %s", outputPath)
	return nil
}
