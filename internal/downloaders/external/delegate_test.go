package external

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/mediafetch/internal/utils"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script binaries are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "aria2c")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestBuildArgs(t *testing.T) {
	d := &Delegate{
		HostRules: utils.HostRules{{Match: "cdn.example.com", Headers: map[string]string{"Referer": "https://example.com/"}}},
		Cookie:    "sid=1",
		ExtraArgs: []string{"--check-certificate=false"},
	}
	args := d.BuildArgs("https://video.cdn.example.com/a.m4s", "/tmp/out/a.m4s")

	assert.Equal(t, profileArgs, args[:len(profileArgs)])
	rest := args[len(profileArgs):]
	assert.Equal(t, []string{
		"--header=Referer: https://example.com/",
		"--header=Cookie: sid=1",
		"--dir=/tmp/out",
		"--out=a.m4s",
		"--check-certificate=false",
		"https://video.cdn.example.com/a.m4s",
	}, rest)
}

func TestBuildArgsWithoutRules(t *testing.T) {
	args := (&Delegate{}).BuildArgs("https://other.example.org/a", "a")
	assert.Equal(t, "https://other.example.org/a", args[len(args)-1])
	assert.NotContains(t, args, "--header=Cookie: ")
	assert.Contains(t, args, "--out=a")
}

func TestAvailable(t *testing.T) {
	ok := writeScript(t, "exit 0\n")
	assert.True(t, (&Delegate{Binary: ok}).Available(context.Background()))

	broken := writeScript(t, "exit 3\n")
	assert.False(t, (&Delegate{Binary: broken}).Available(context.Background()))

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	assert.False(t, (&Delegate{Binary: missing}).Available(context.Background()))
}

func TestDownloadFailureCarriesStderr(t *testing.T) {
	binary := writeScript(t, "echo 'errorCode=3 Resource not found' >&2\nexit 3\n")
	err := (&Delegate{Binary: binary}).Download(context.Background(), "https://example.com/a", filepath.Join(t.TempDir(), "a"))

	var delegateErr *DelegateError
	require.ErrorAs(t, err, &delegateErr)
	assert.Equal(t, 3, delegateErr.ExitCode)
	assert.Contains(t, delegateErr.Stderr, "Resource not found")
	assert.Contains(t, err.Error(), "Resource not found")
}

func TestDownloadMissingBinary(t *testing.T) {
	err := (&Delegate{Binary: filepath.Join(t.TempDir(), "nope")}).Download(context.Background(), "https://example.com/a", "a")
	var delegateErr *DelegateError
	require.ErrorAs(t, err, &delegateErr)
	assert.Equal(t, -1, delegateErr.ExitCode)
}

func TestDownloadPassesArguments(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args.txt")
	binary := writeScript(t, `for arg in "$@"; do echo "$arg"; done > "`+record+"\"\n")
	require.NoError(t, (&Delegate{Binary: binary}).Download(context.Background(), "https://example.com/a", filepath.Join(dir, "a")))

	recorded, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "--dir="+dir+"\n")
	assert.Contains(t, string(recorded), "https://example.com/a\n")
}

func TestRedactHidesCookie(t *testing.T) {
	out := redact([]string{"aria2c", "--header=Cookie: sid=secret", "--split=16"})
	assert.Equal(t, []string{"aria2c", "--header=Cookie: <redacted>", "--split=16"}, out)
}
