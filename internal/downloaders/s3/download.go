package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/chunks"
	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func (d *S3Downloader) Download(ctx context.Context, job *utils.FetchJob) error {
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	fileType, _ := job.Metadata["fileType"].(string)
	client, err := newObjectClient(ctx, profileOf(job))
	if err != nil {
		return fmt.Errorf("error creating S3 client: %w", err)
	}
	limiter := utils.NewLimiter(job.Engine.RateLimit)
	job.Progress.Register(job.Label, job.Plan.TotalSize, job.Plan.SizeKnown)
	defer job.Progress.Finish(job.Label)

	start := time.Now()
	if fileType == "folder" {
		log.Info().Str("op", "s3/download").Msgf("starting folder download for s3://%s/%s", bucket, key)
		err = d.downloadFolder(ctx, job, bucket, key, client, limiter)
	} else {
		log.Info().Str("op", "s3/download").Msgf("starting file download for s3://%s/%s", bucket, key)
		err = downloadObject(ctx, job, bucket, key, job.Plan.OutputPath, job.Plan.TotalSize, client, limiter)
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	job.HTTPClientConfig.Metrics.ObserveDownload(string(job.Plan.Strategy), result, time.Since(start))
	return err
}

// downloadObject splits objects above the chunk threshold into ranged reads
// through the shared chunk pipeline; smaller ones are one streamed GET.
func downloadObject(ctx context.Context, job *utils.FetchJob, bucket, key, outputPath string, size int64, client objectAPI, limiter *rate.Limiter) error {
	threshold := job.Engine.ChunkThreshold
	if threshold <= 0 {
		threshold = utils.DefaultChunkThreshold
	}
	report := func(n int64) {
		job.Progress.Add(job.Label, n)
		job.HTTPClientConfig.Metrics.AddBytes(n)
	}
	if size <= threshold {
		_, err := fetchObject(ctx, client, bucket, key, nil, outputPath, limiter, report)
		return err
	}
	pipeline := chunks.Pipeline{
		OutputPath:        outputPath,
		TotalSize:         size,
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
		n, err := fetchObject(ctx, client, bucket, key, &rng, c.TempPath, limiter, nil)
		if err == nil {
			job.HTTPClientConfig.Metrics.AddBytes(n)
		}
		return err
	})
}

func (d *S3Downloader) downloadFolder(ctx context.Context, job *utils.FetchJob, bucket, prefix string, client objectAPI, limiter *rate.Limiter) error {
	objects, err := listS3Objects(ctx, bucket, prefix, client)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no objects found in s3://%s/%s", bucket, prefix)
	}
	var totalSize int64
	for _, obj := range objects {
		totalSize += obj.Size
	}
	job.Progress.Register(job.Label, totalSize, true)
	log.Debug().Str("op", "s3/download").Msgf("found %d objects (%s) to download in folder", len(objects), utils.FormatBytes(uint64(totalSize)))

	// Objects are fetched one stream each here; chunking inside a folder
	// would multiply the connection count.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(job.Connections, len(objects))))
	for _, obj := range objects {
		g.Go(func() error {
			relPath := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
			outputPath := filepath.Join(job.Plan.OutputPath, relPath)
			if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
				return fmt.Errorf("error creating directory: %w", err)
			}
			_, err := fetchObject(gctx, client, bucket, obj.Key, nil, outputPath, limiter, func(n int64) {
				job.Progress.Add(job.Label, n)
				job.HTTPClientConfig.Metrics.AddBytes(n)
			})
			if err != nil {
				return fmt.Errorf("error downloading %s: %w", obj.Key, err)
			}
			return nil
		})
	}
	return g.Wait()
}
