package utils

import (
	"errors"
	"fmt"
)

const (
	DefaultBufferSize     = 1024 * 256       // 256KB read buffer
	DefaultChunkSize      = 1024 * 1024 * 10 // 10MiB
	DefaultChunkThreshold = 1024 * 1024 * 10
	DefaultConnections    = 8
	DefaultRetryAttempts  = 3
	TempDirName           = ".download_tmp"
	ToolUserAgent         = "mediafetch/1.0"
)

const (
	PoolModeCohort = "cohort"
	PoolModeRefill = "refill"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrRangeNotSatisfied  = errors.New("server ignored range request")
	ErrSizeMismatch       = errors.New("received size does not match requested range")
)

// FetchError is returned by the Transport once its retry budget is spent.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetching %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ChunkError marks the chunk whose failure aborted a chunked download.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
}

// BrowserUserAgent is sent to CDN hosts that reject non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
