package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func TestSelectStrategy(t *testing.T) {
	large := int64(DefaultChunkThreshold + 1)
	tests := []struct {
		name string
		in   StrategyInput
		want Strategy
	}{
		{"delegate available", StrategyInput{DelegateRequested: true, DelegateAvailable: true}, StrategyExternal},
		{"delegate missing falls back", StrategyInput{DelegateRequested: true}, StrategyStreaming},
		{"unknown size with ranges", StrategyInput{Probe: ProbeResult{SupportsRange: true}}, StrategySimple},
		{"large with ranges", StrategyInput{Probe: ProbeResult{Size: large, SizeKnown: true, SupportsRange: true}}, StrategyChunked},
		{"large without ranges", StrategyInput{Probe: ProbeResult{Size: large, SizeKnown: true}}, StrategyStreaming},
		{"at threshold", StrategyInput{Probe: ProbeResult{Size: DefaultChunkThreshold, SizeKnown: true, SupportsRange: true}}, StrategyStreaming},
		{"custom threshold", StrategyInput{ChunkThreshold: 100, Probe: ProbeResult{Size: 101, SizeKnown: true, SupportsRange: true}}, StrategyChunked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(tt.in))
		})
	}
}

func TestHostRules(t *testing.T) {
	headers := DefaultHostRules.HeadersFor("https://upos-sz-mirror.bilivideo.com/v.m4s?sig=1")
	assert.Equal(t, "https://www.bilibili.com", headers["Referer"])
	assert.Equal(t, BrowserUserAgent, headers["User-Agent"])

	assert.Empty(t, DefaultHostRules.HeadersFor("https://notbilivideo.com/x"))
	assert.Empty(t, DefaultHostRules.HeadersFor("::not a url"))

	rules := append(HostRules{}, DefaultHostRules...)
	rules = append(rules, HostRule{Match: "hdslb.com", Headers: map[string]string{"Referer": "https://override.example"}})
	assert.Equal(t, []string{"Referer: https://override.example"}, rules.HeaderLines("https://i0.hdslb.com/a.jpg"))
}

func TestProgressRegistry(t *testing.T) {
	p := NewProgressRegistry()
	p.Register("video", 1000, true)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Add("video", 100)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), p.Add("video", -50))
	p.Finish("video")

	entry, ok := p.Get("video")
	require.True(t, ok)
	assert.True(t, entry.Done)
	assert.True(t, entry.TotalKnown)

	var nilRegistry *ProgressRegistry
	assert.NotPanics(t, func() { nilRegistry.Add("x", 1) })
}

func TestRenewOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.Equal(t, filepath.Join(dir, "video-(1).mp4"), RenewOutputPath(path))
}

func TestOutputNameFromURL(t *testing.T) {
	assert.Equal(t, "file.mp4", OutputNameFromURL("https://cdn.example.com/a/file.mp4?x=1"))
	assert.Equal(t, "download", OutputNameFromURL("https://cdn.example.com/"))
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	tempDir := filepath.Join(dir, TempDirName)
	require.NoError(t, os.MkdirAll(tempDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "chunk_0"), []byte("x"), 0644))

	require.NoError(t, Clean(filepath.Join(dir, "video.mp4")))
	assert.NoDirExists(t, tempDir)
	assert.NoError(t, Clean(dir))
}
