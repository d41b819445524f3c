package chunks

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/metrics"
	"github.com/tanq16/mediafetch/internal/utils"
)

// FetchFunc writes one chunk's byte range to c.TempPath.
type FetchFunc func(ctx context.Context, c Chunk) error

type Pipeline struct {
	OutputPath        string
	TotalSize         int64
	ChunkSize         int64
	Threads           int
	PoolMode          string
	KeepTempOnFailure bool
	Label             string
	Progress          *utils.ProgressRegistry
	Metrics           *metrics.Metrics
}

// Run plans, fetches and merges. The temp directory is removed on every exit
// path unless KeepTempOnFailure is set and the download failed.
func (p Pipeline) Run(ctx context.Context, fetch FetchFunc) (err error) {
	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = utils.DefaultChunkSize
	}
	tempDir, err := AcquireTempDir(p.OutputPath, p.KeepTempOnFailure)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := tempDir.Release(err == nil); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	chunks, err := Plan(p.TotalSize, chunkSize, tempDir.Path)
	if err != nil {
		return err
	}
	log.Debug().Str("op", "chunks/pipeline").Msgf("planned %d chunk(s) of %s for %s", len(chunks), utils.FormatBytes(uint64(chunkSize)), p.OutputPath)

	err = RunPool(ctx, chunks, p.Threads, p.PoolMode, func(ctx context.Context, c Chunk) error {
		p.Metrics.ChunkStarted()
		fetchErr := fetch(ctx, c)
		p.Metrics.ChunkFinished(fetchErr)
		if fetchErr != nil {
			log.Error().Str("op", "chunks/pipeline").Err(fetchErr).Msgf("chunk %d failed", c.Index)
			return fetchErr
		}
		p.Progress.Add(p.Label, c.Len())
		return nil
	})
	if err != nil {
		return err
	}

	// a failed merge leaves nothing at the output path
	partPath := p.OutputPath + ".part"
	written, err := Merge(chunks, partPath)
	if err == nil && written != p.TotalSize {
		err = fmt.Errorf("%w: merged %d bytes, expected %d", utils.ErrSizeMismatch, written, p.TotalSize)
	}
	if err != nil {
		os.Remove(partPath)
		return err
	}
	if err := os.Rename(partPath, p.OutputPath); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("error renaming (finalizing) output file: %w", err)
	}
	return nil
}
