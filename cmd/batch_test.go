package cmd

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/mediafetch/internal/config"
)

const sampleBatch = `
https:
  - link: https://example.com/a.mp4
    op: videos/a.mp4
    size: 2MiB
  - link: ""
s3:
  - link: media/b.m4a
    profile: archive
  - link: media/c.m4a
ftp:
  - link: ftp://example.com/x
`

func TestBuildJobsFromBatch(t *testing.T) {
	cfg = config.Default()
	cfg.S3Profile = "default-profile"

	var batchFile BatchFile
	require.NoError(t, yaml.Unmarshal([]byte(sampleBatch), &batchFile))
	jobs, err := buildJobsFromBatch(batchFile)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, "http", jobs[0].JobType)
	assert.Equal(t, "videos/a.mp4", jobs[0].OutputPath)
	assert.Equal(t, int64(2*1024*1024), jobs[0].KnownSize)

	assert.Equal(t, "s3", jobs[1].JobType)
	assert.Equal(t, "archive", jobs[1].Metadata["profile"])
	assert.Equal(t, "default-profile", jobs[2].Metadata["profile"])
}

func TestBuildJobsFromBatchBadSize(t *testing.T) {
	cfg = config.Default()
	_, err := buildJobsFromBatch(BatchFile{"http": {{Link: "https://example.com/a", Size: "lots"}}})
	assert.Error(t, err)
}

func TestNormalizeJobType(t *testing.T) {
	assert.Equal(t, "http", normalizeJobType("HTTPS"))
	assert.Equal(t, "s3", normalizeJobType("s3"))
	assert.Empty(t, normalizeJobType("gdrive"))
}
