package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	mfhttp "github.com/tanq16/mediafetch/internal/downloaders/http"
	"github.com/tanq16/mediafetch/internal/downloaders/s3"
	"github.com/tanq16/mediafetch/internal/output"
	"github.com/tanq16/mediafetch/internal/utils"
)

// downloaderRegistry maps job types to their downloader implementations.
var downloaderRegistry = map[string]utils.Downloader{
	"http": &mfhttp.HTTPDownloader{},
	"s3":   &s3.S3Downloader{},
}

var ErrJobsFailed = errors.New("one or more downloads failed")

// Run executes jobs on numWorkers workers and returns one result per job in
// input order. The returned error is ErrJobsFailed when any job failed.
func Run(ctx context.Context, jobs []utils.FetchJob, numWorkers int, outputMgr *output.Manager, progress *utils.ProgressRegistry) ([]utils.JobResult, error) {
	if progress == nil {
		progress = utils.NewProgressRegistry()
	}
	if outputMgr == nil {
		outputMgr = output.NewManager(progress)
	}
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	type indexedJob struct {
		index int
		job   utils.FetchJob
	}
	jobCh := make(chan indexedJob, len(jobs))
	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		job.Progress = progress
		jobCh <- indexedJob{index: i, job: job}
	}
	close(jobCh)

	results := make([]utils.JobResult, len(jobs))
	var wg sync.WaitGroup
	for range max(1, min(numWorkers, len(jobs))) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range jobCh {
				results[ij.index] = processJob(ctx, ij.job, outputMgr)
			}
		}()
	}
	wg.Wait()

	for _, result := range results {
		if result.Err != nil {
			return results, ErrJobsFailed
		}
	}
	return results, nil
}

func processJob(ctx context.Context, job utils.FetchJob, outputMgr *output.Manager) utils.JobResult {
	start := time.Now()
	result := utils.JobResult{JobID: job.ID, Output: job.OutputPath}
	name := job.OutputPath
	if name == "" {
		name = job.URL
	}
	funcID := outputMgr.RegisterFunction(name)
	logger := log.With().Str("op", "scheduler/scheduler").Str("job", job.ID).Logger()

	fail := func(stage string, err error) utils.JobResult {
		err = fmt.Errorf("%s failed: %w", stage, err)
		logger.Error().Err(err).Msgf("job for %s failed", job.URL)
		outputMgr.ReportError(funcID, err)
		outputMgr.SetMessage(funcID, fmt.Sprintf("Failed %s", name))
		result.Err = err
		result.Elapsed = time.Since(start)
		return result
	}

	downloader, exists := downloaderRegistry[job.JobType]
	if !exists {
		return fail("dispatch", fmt.Errorf("unknown job type: %s", job.JobType))
	}

	outputMgr.SetStatus(funcID, output.StatusActive)
	outputMgr.SetMessage(funcID, fmt.Sprintf("Validating %s job", job.JobType))
	if err := downloader.ValidateJob(ctx, &job); err != nil {
		return fail("validation", err)
	}

	outputMgr.SetMessage(funcID, fmt.Sprintf("Probing %s", job.URL))
	if err := downloader.BuildJob(ctx, &job); err != nil {
		return fail("build", err)
	}
	result.Output = job.OutputPath
	if job.Plan != nil {
		result.Strategy = job.Plan.Strategy
	}

	outputMgr.BindProgress(funcID, job.Label)
	outputMgr.SetMessage(funcID, fmt.Sprintf("Downloading %s (%s)", job.OutputPath, result.Strategy))
	if err := downloader.Download(ctx, &job); err != nil {
		return fail("download", err)
	}

	result.Elapsed = time.Since(start)
	if entry, ok := job.Progress.Get(job.Label); ok {
		result.Bytes = entry.Downloaded
	}
	if result.Bytes == 0 {
		if info, err := os.Stat(job.OutputPath); err == nil && !info.IsDir() {
			result.Bytes = info.Size()
		}
	}
	logger.Info().Msgf("downloaded %s (%s) in %s", job.OutputPath, utils.FormatBytes(uint64(result.Bytes)), result.Elapsed.Round(time.Millisecond))
	outputMgr.Complete(funcID, fmt.Sprintf("Completed %s (%s)", job.OutputPath, utils.FormatBytes(uint64(result.Bytes))))
	return result
}
