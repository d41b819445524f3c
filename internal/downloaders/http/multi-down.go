package mfhttp

import (
	"context"

	"github.com/tanq16/mediafetch/internal/chunks"
	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/time/rate"
)

func performChunkedDownload(ctx context.Context, job *utils.FetchJob, client *utils.FetchClient, limiter *rate.Limiter) error {
	pipeline := chunks.Pipeline{
		OutputPath:        job.Plan.OutputPath,
		TotalSize:         job.Plan.TotalSize,
		ChunkSize:         job.Engine.ChunkSize,
		Threads:           job.Connections,
		PoolMode:          job.Engine.PoolMode,
		KeepTempOnFailure: job.Engine.KeepTempOnFailure,
		Label:             job.Label,
		Progress:          job.Progress,
		Metrics:           job.HTTPClientConfig.Metrics,
	}
	return pipeline.Run(ctx, func(ctx context.Context, c chunks.Chunk) error {
		rng := c.Range()
		_, err := client.FetchToFile(ctx, job.Plan.URL, nil, &rng, c.TempPath, limiter)
		return err
	})
}
