package mux

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script binaries are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{"-y", "-i", "v.mp4", "-i", "a.m4a", "-c", "copy", "out.mp4"}, Args("v.mp4", "a.m4a", "out.mp4"))
}

func TestMuxRemovesInputs(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "v.mp4")
	audio := filepath.Join(dir, "a.m4a")
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0644))
	require.NoError(t, os.WriteFile(audio, []byte("a"), 0644))

	// last argument is the output path
	binary := fakeFFmpeg(t, `for last; do :; done; echo muxed > "$last"`)
	m := &Muxer{Binary: binary}
	require.NoError(t, m.Mux(context.Background(), video, audio, out))

	assert.FileExists(t, out)
	assert.NoFileExists(t, video)
	assert.NoFileExists(t, audio)
}

func TestMuxFailureKeepsInputs(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "v.mp4")
	audio := filepath.Join(dir, "a.m4a")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0644))
	require.NoError(t, os.WriteFile(audio, []byte("a"), 0644))

	m := &Muxer{Binary: fakeFFmpeg(t, "echo 'Invalid data found' >&2; exit 1")}
	err := m.Mux(context.Background(), video, audio, filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
	assert.FileExists(t, video)
	assert.FileExists(t, audio)
}
