package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/mediafetch/internal/utils"
)

type BatchEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	Link       string `yaml:"link"`
	Size       string `yaml:"size,omitempty"`
	Delegate   bool   `yaml:"delegate,omitempty"`
	Profile    string `yaml:"profile,omitempty"`
}

// BatchFile groups entries by job type, e.g. "http:" and "s3:" lists.
type BatchFile map[string][]BatchEntry

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML file:

  http:
    - link: https://example.com/video.mp4
      op: videos/video.mp4
  s3:
    - link: mybucket/path/audio.m4a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading YAML file: %w", err)
			}
			var batchFile BatchFile
			if err := yaml.Unmarshal(data, &batchFile); err != nil {
				return fmt.Errorf("error parsing YAML file: %w", err)
			}
			jobs, err := buildJobsFromBatch(batchFile)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return fmt.Errorf("no valid jobs found in the batch file")
			}
			// keep the total connection count bounded across parallel links
			perLink := cfg.Connections
			if maxConnections := 64; cfg.Workers*perLink > maxConnections {
				perLink = max(maxConnections/cfg.Workers, 1)
			}
			for i := range jobs {
				jobs[i].Connections = perLink
			}
			_, err = runJobs(cmd.Context(), jobs, cfg.Workers)
			return err
		},
	}
	return cmd
}

func buildJobsFromBatch(batchFile BatchFile) ([]utils.FetchJob, error) {
	jobTypes := make([]string, 0, len(batchFile))
	for jobType := range batchFile {
		jobTypes = append(jobTypes, jobType)
	}
	sort.Strings(jobTypes)

	var jobs []utils.FetchJob
	for _, jobType := range jobTypes {
		normalizedType := normalizeJobType(jobType)
		if normalizedType == "" {
			log.Warn().Str("op", "cmd/batch").Msgf("unknown job type '%s', skipping", jobType)
			continue
		}
		for _, entry := range batchFile[jobType] {
			if entry.Link == "" {
				log.Warn().Str("op", "cmd/batch").Msgf("empty link found in %s section, skipping", jobType)
				continue
			}
			job := newJob(normalizedType, entry.Link, entry.OutputPath)
			job.UseDelegate = entry.Delegate
			if entry.Size != "" {
				size, err := parseSize(entry.Size)
				if err != nil {
					return nil, fmt.Errorf("entry %s: %w", entry.Link, err)
				}
				job.KnownSize = size
			}
			if normalizedType == "s3" {
				job.Metadata["profile"] = cfg.S3Profile
				if entry.Profile != "" {
					job.Metadata["profile"] = entry.Profile
				}
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func normalizeJobType(jobType string) string {
	switch strings.ToLower(jobType) {
	case "http", "https":
		return "http"
	case "s3":
		return "s3"
	}
	return ""
}
