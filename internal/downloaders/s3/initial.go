package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
)

type S3Downloader struct{}

func (d *S3Downloader) ValidateJob(ctx context.Context, job *utils.FetchJob) error {
	bucket, key, err := parseS3URL(job.URL)
	if err != nil {
		return err
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	job.Metadata["bucket"] = bucket
	job.Metadata["key"] = key
	log.Info().Str("op", "s3/initial").Msgf("job validated for s3://%s/%s", bucket, key)
	return nil
}

func (d *S3Downloader) BuildJob(ctx context.Context, job *utils.FetchJob) error {
	bucket := job.Metadata["bucket"].(string)
	key := job.Metadata["key"].(string)
	client, err := newObjectClient(ctx, profileOf(job))
	if err != nil {
		return fmt.Errorf("error creating S3 client: %w", err)
	}

	fileType, size, err := getS3ObjectInfo(ctx, bucket, key, client)
	if err != nil {
		return fmt.Errorf("error getting S3 object info: %w", err)
	}
	job.Metadata["fileType"] = fileType
	log.Debug().Str("op", "s3/initial").Msgf("determined object type: %s, size: %d", fileType, size)

	if job.OutputPath == "" {
		parts := strings.Split(strings.TrimSuffix(key, "/"), "/")
		job.OutputPath = parts[len(parts)-1]
		if job.OutputPath == "" {
			job.OutputPath = bucket
		}
	}
	if _, err := os.Stat(job.OutputPath); err == nil && !job.Overwrite {
		job.OutputPath = utils.RenewOutputPath(job.OutputPath)
	}
	if job.Label == "" {
		job.Label = job.OutputPath
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	// Objects always report their size and honor ranges, so the only choice
	// left is whether the object is large enough to split.
	plan := &utils.DownloadPlan{
		URL:           job.URL,
		OutputPath:    job.OutputPath,
		TotalSize:     size,
		SizeKnown:     fileType == "file",
		SupportsRange: fileType == "file",
	}
	plan.Strategy = utils.SelectStrategy(utils.StrategyInput{
		Probe:          utils.ProbeResult{Size: size, SizeKnown: plan.SizeKnown, SupportsRange: plan.SupportsRange},
		ChunkThreshold: job.Engine.ChunkThreshold,
	})
	job.Plan = plan
	log.Info().Str("op", "s3/initial").Str("strategy", string(plan.Strategy)).Msgf("job built for s3://%s/%s", bucket, key)
	return nil
}

// parseS3URL accepts "s3://bucket/key" as well as a bare "bucket/key".
func parseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format: missing bucket")
	}
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}

func profileOf(job *utils.FetchJob) string {
	if profile, ok := job.Metadata["profile"].(string); ok {
		return profile
	}
	return ""
}
