package mfhttp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/downloaders/external"
	"github.com/tanq16/mediafetch/internal/utils"
)

type HTTPDownloader struct{}

func (d *HTTPDownloader) ValidateJob(ctx context.Context, job *utils.FetchJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL has no host: %s", job.URL)
	}
	return nil
}

func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.FetchJob) error {
	job.HTTPClientConfig.HighThreadMode = job.Connections > 5
	if job.OutputPath == "" {
		job.OutputPath = utils.OutputNameFromURL(job.URL)
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

	plan := &utils.DownloadPlan{URL: job.URL, OutputPath: job.OutputPath}
	in := utils.StrategyInput{
		DelegateRequested: job.UseDelegate,
		ChunkThreshold:    job.Engine.ChunkThreshold,
	}
	if job.UseDelegate {
		in.DelegateAvailable = newDelegate(job).Available(ctx)
		if !in.DelegateAvailable {
			log.Warn().Str("op", "http/initial").Msg("external delegate unavailable, falling back to streaming download")
		}
	} else {
		client := utils.NewFetchClient(job.HTTPClientConfig)
		probe, err := Probe(ctx, client, job.URL)
		if err != nil {
			log.Debug().Str("op", "http/initial").Err(err).Msgf("probe failed for %s, treating size as unknown", job.URL)
			probe = utils.ProbeResult{}
		}
		if !probe.SizeKnown && job.KnownSize > 0 {
			probe.Size = job.KnownSize
			probe.SizeKnown = true
		}
		in.Probe = probe
		plan.TotalSize = probe.Size
		plan.SizeKnown = probe.SizeKnown
		plan.SupportsRange = probe.SupportsRange
	}
	plan.Strategy = utils.SelectStrategy(in)
	job.Plan = plan
	log.Info().Str("op", "http/initial").Str("strategy", string(plan.Strategy)).Msgf("job built for %s (size=%d known=%t ranges=%t)", job.URL, plan.TotalSize, plan.SizeKnown, plan.SupportsRange)
	return nil
}

// Probe issues a HEAD request. A missing or unparsable Content-Length leaves
// the size unknown; ranges are supported only for "Accept-Ranges: bytes".
func Probe(ctx context.Context, client *utils.FetchClient, link string) (utils.ProbeResult, error) {
	resp, err := client.Head(ctx, link, nil)
	if err != nil {
		return utils.ProbeResult{}, err
	}
	defer resp.Body.Close()
	result := utils.ProbeResult{
		SupportsRange: resp.Header.Get("Accept-Ranges") == "bytes",
	}
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		size, err := strconv.ParseInt(contentLength, 10, 64)
		if err == nil && size >= 0 {
			result.Size = size
			result.SizeKnown = true
		}
	}
	return result, nil
}

func newDelegate(job *utils.FetchJob) *external.Delegate {
	rules := job.HTTPClientConfig.HostRules
	if rules == nil {
		rules = utils.DefaultHostRules
	}
	return &external.Delegate{
		Binary:    job.Engine.DelegateBinary,
		HostRules: rules,
		Cookie:    job.HTTPClientConfig.Cookie,
		ExtraArgs: job.Engine.DelegateArgs,
	}
}
