package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/mediafetch/internal/utils"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWithFile(t *testing.T) {
	path := writeConfig(t, `connections: 4
chunk_size: 4MiB
chunk_threshold: 20MB
pool_mode: refill
keep_temp_on_failure: true
limit_rate: 2MiB
timeout: 30s
host_rules:
  - match: cdn.example.com
    headers:
      Referer: https://example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Connections)
	assert.Equal(t, ByteSize(4*1024*1024), cfg.ChunkSize)
	assert.Equal(t, ByteSize(20*1000*1000), cfg.ChunkThreshold)
	assert.Equal(t, utils.PoolModeRefill, cfg.PoolMode)
	assert.True(t, cfg.KeepTempOnFailure)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, utils.DefaultRetryAttempts, cfg.Retries)

	engine := cfg.EngineConfig()
	assert.Equal(t, int64(2*1024*1024), engine.RateLimit)

	rules := cfg.HTTPClientConfig().HostRules
	require.Len(t, rules, len(utils.DefaultHostRules)+1)
	assert.Equal(t, "https://example.com", rules.HeadersFor("https://media.cdn.example.com/x")["Referer"])
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadPoolMode(t *testing.T) {
	_, err := Load(writeConfig(t, "pool_mode: eager\n"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("MEDIAFETCH_CONNECTIONS", "12")
	t.Setenv("MEDIAFETCH_CHUNK_SIZE", "1MiB")
	t.Setenv("MEDIAFETCH_COOKIE", "SESSDATA=abc")
	cfg, err := Load(writeConfig(t, "connections: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Connections)
	assert.Equal(t, ByteSize(1024*1024), cfg.ChunkSize)
	assert.Equal(t, "SESSDATA=abc", cfg.Cookie)
}

func TestEnvRejectsGarbage(t *testing.T) {
	t.Setenv("MEDIAFETCH_WORKERS", "many")
	_, err := Load(writeConfig(t, "{}\n"))
	assert.Error(t, err)
}

func TestParseByteSize(t *testing.T) {
	size, err := ParseByteSize("10MiB")
	require.NoError(t, err)
	assert.Equal(t, ByteSize(10*1024*1024), size)

	size, err = ParseByteSize("")
	require.NoError(t, err)
	assert.Zero(t, size)

	_, err = ParseByteSize("lots")
	assert.Error(t, err)
}
