package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
)

const DefaultBinary = "aria2c"

// Fixed connection profile handed to the accelerator.
var profileArgs = []string{
	"--auto-file-renaming=false",
	"--allow-overwrite=true",
	"--max-connection-per-server=16",
	"--split=16",
	"--max-concurrent-downloads=16",
	"--min-split-size=1M",
	"--console-log-level=warn",
	"--summary-interval=0",
}

type Delegate struct {
	Binary    string
	HostRules utils.HostRules
	Cookie    string
	ExtraArgs []string
}

// DelegateError carries the captured stderr of a failed accelerator run.
type DelegateError struct {
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DelegateError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d: %v", e.Binary, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Binary, e.ExitCode, stderr)
}

func (e *DelegateError) Unwrap() error {
	return e.Err
}

func (d *Delegate) binary() string {
	if d.Binary == "" {
		return DefaultBinary
	}
	return d.Binary
}

// ResolveBinary looks in PATH first, then next to the running executable.
func ResolveBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	execPath, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), filepath.Base(name))
		if runtime.GOOS == "windows" && !strings.HasSuffix(candidate, ".exe") {
			candidate += ".exe"
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or next to the executable", name)
}

// Available runs "<binary> --version". Any failure means unavailable; it is
// never reported as an error.
func (d *Delegate) Available(ctx context.Context) bool {
	path, err := ResolveBinary(d.binary())
	if err != nil {
		log.Debug().Str("op", "external/delegate").Err(err).Msg("delegate binary not found")
		return false
	}
	cmd := exec.CommandContext(ctx, path, "--version")
	if err := cmd.Run(); err != nil {
		log.Debug().Str("op", "external/delegate").Err(err).Msgf("%s --version failed", path)
		return false
	}
	return true
}

// BuildArgs renders the argument list for one download; the URL goes last.
func (d *Delegate) BuildArgs(link, outputPath string) []string {
	args := append([]string{}, profileArgs...)
	for _, line := range d.HostRules.HeaderLines(link) {
		args = append(args, "--header="+line)
	}
	if d.Cookie != "" {
		args = append(args, "--header=Cookie: "+d.Cookie)
	}
	args = append(args, "--dir="+filepath.Dir(outputPath), "--out="+filepath.Base(outputPath))
	args = append(args, d.ExtraArgs...)
	return append(args, link)
}

func (d *Delegate) Download(ctx context.Context, link, outputPath string) error {
	path, err := ResolveBinary(d.binary())
	if err != nil {
		return &DelegateError{Binary: d.binary(), ExitCode: -1, Err: err}
	}
	args := d.BuildArgs(link, outputPath)
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug().Str("op", "external/delegate").Msgf("executing %s", shellescape.QuoteCommand(redact(append([]string{path}, args...))))

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Error().Str("op", "external/delegate").Err(err).Msgf("%s failed for %s", filepath.Base(path), link)
		return &DelegateError{Binary: filepath.Base(path), ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}
	log.Debug().Str("op", "external/delegate").Msgf("delegate output: %s", strings.TrimSpace(stdout.String()))
	log.Info().Str("op", "external/delegate").Msgf("delegate finished %s", outputPath)
	return nil
}

func redact(argv []string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		if strings.HasPrefix(arg, "--header=Cookie:") {
			arg = "--header=Cookie: <redacted>"
		}
		out[i] = arg
	}
	return out
}
