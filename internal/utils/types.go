package utils

import (
	"context"
	"time"
)

type Downloader interface {
	ValidateJob(ctx context.Context, job *FetchJob) error
	BuildJob(ctx context.Context, job *FetchJob) error
	Download(ctx context.Context, job *FetchJob) error
}

type FetchJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	Label            string
	KnownSize        int64 // pre-fetched size from the stream producer, 0 if unknown
	Connections      int
	UseDelegate      bool
	Overwrite        bool
	Plan             *DownloadPlan
	Metadata         map[string]any
	Engine           EngineConfig
	HTTPClientConfig HTTPClientConfig
	Progress         *ProgressRegistry
}

// EngineConfig carries the knobs shared by every chunk-capable downloader.
type EngineConfig struct {
	ChunkSize         int64
	ChunkThreshold    int64
	PoolMode          string
	KeepTempOnFailure bool
	RateLimit         int64
	DelegateBinary    string
	DelegateArgs      []string
}

type DownloadPlan struct {
	URL           string
	OutputPath    string
	TotalSize     int64
	SizeKnown     bool
	SupportsRange bool
	Strategy      Strategy
}

type ProbeResult struct {
	Size          int64
	SizeKnown     bool
	SupportsRange bool
}

type ByteRange struct {
	Start int64
	End   int64 // inclusive
}

func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

type JobResult struct {
	JobID    string
	Output   string
	Strategy Strategy
	Bytes    int64
	Elapsed  time.Duration
	Err      error
}
