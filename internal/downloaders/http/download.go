package mfhttp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
)

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.FetchJob) error {
	plan := job.Plan
	if plan == nil {
		return fmt.Errorf("job for %s has no download plan", job.URL)
	}
	client := utils.NewFetchClient(job.HTTPClientConfig)
	limiter := utils.NewLimiter(job.Engine.RateLimit)
	job.Progress.Register(job.Label, plan.TotalSize, plan.SizeKnown)
	defer job.Progress.Finish(job.Label)

	start := time.Now()
	var err error
	switch plan.Strategy {
	case utils.StrategyExternal:
		err = newDelegate(job).Download(ctx, plan.URL, plan.OutputPath)
		if err == nil {
			if info, statErr := os.Stat(plan.OutputPath); statErr == nil {
				job.Progress.Add(job.Label, info.Size())
				job.HTTPClientConfig.Metrics.AddBytes(info.Size())
			}
		}
	case utils.StrategyChunked:
		err = performChunkedDownload(ctx, job, client, limiter)
	case utils.StrategyStreaming:
		err = performStreamingDownload(ctx, job, client, limiter)
	default:
		err = performSimpleDownload(ctx, job, client)
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	job.HTTPClientConfig.Metrics.ObserveDownload(string(plan.Strategy), result, time.Since(start))
	if err != nil {
		log.Error().Str("op", "http/download").Err(err).Msgf("%s download failed for %s", plan.Strategy, plan.OutputPath)
		return err
	}
	log.Info().Str("op", "http/download").Msgf("%s download completed for %s in %s", plan.Strategy, plan.OutputPath, time.Since(start).Round(time.Millisecond))
	return nil
}
