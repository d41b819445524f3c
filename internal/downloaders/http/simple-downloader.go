package mfhttp

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/time/rate"
)

// performSimpleDownload reads the whole body in one retried request and
// writes it out via a ".part" file.
func performSimpleDownload(ctx context.Context, job *utils.FetchJob, client *utils.FetchClient) error {
	body, err := client.GetBytes(ctx, job.Plan.URL, nil, nil)
	if err != nil {
		return err
	}
	tempOutputPath := job.Plan.OutputPath + ".part"
	if err := os.WriteFile(tempOutputPath, body, 0644); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	if err := os.Rename(tempOutputPath, job.Plan.OutputPath); err != nil {
		os.Remove(tempOutputPath)
		return fmt.Errorf("error renaming (finalizing) output file: %w", err)
	}
	job.Progress.Add(job.Label, int64(len(body)))
	job.HTTPClientConfig.Metrics.AddBytes(int64(len(body)))
	log.Debug().Str("op", "http/simple-downloader").Msgf("simple download wrote %s to %s", utils.FormatBytes(uint64(len(body))), job.Plan.OutputPath)
	return nil
}

// performStreamingDownload copies the body block by block, reporting progress
// after every block. Only obtaining the response is retried.
func performStreamingDownload(ctx context.Context, job *utils.FetchJob, client *utils.FetchClient, limiter *rate.Limiter) error {
	resp, err := client.Get(ctx, job.Plan.URL, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tempOutputPath := job.Plan.OutputPath + ".part"
	outFile, err := os.OpenFile(tempOutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	written, err := copyWithProgress(ctx, utils.NewRateLimitedWriter(ctx, outFile, limiter), resp.Body, func(n int64) {
		job.Progress.Add(job.Label, n)
		job.HTTPClientConfig.Metrics.AddBytes(n)
	})
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err == nil && job.Plan.SizeKnown && written != job.Plan.TotalSize {
		err = fmt.Errorf("%w: expected %d bytes, got %d", utils.ErrSizeMismatch, job.Plan.TotalSize, written)
	}
	if err != nil {
		os.Remove(tempOutputPath)
		return err
	}
	if err := os.Rename(tempOutputPath, job.Plan.OutputPath); err != nil {
		os.Remove(tempOutputPath)
		return fmt.Errorf("error renaming (finalizing) output file: %w", err)
	}
	return nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, report func(int64)) (int64, error) {
	buffer := make([]byte, utils.DefaultBufferSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buffer)
		if n > 0 {
			m, err := dst.Write(buffer[:n])
			written += int64(m)
			report(int64(m))
			if err != nil {
				return written, fmt.Errorf("error writing to output file: %w", err)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("error reading response body: %w", readErr)
		}
	}
}
