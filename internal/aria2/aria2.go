// Package aria2 drives the external aria2c transfer engine.
//
// All transport concerns (parallel connections, byte-range resume,
// per-file retry) belong to aria2c. The driver's job is to build the
// invocation, stream its console output through, block until exit, and
// map the exit status to a structured outcome. It never retries: a
// transfer-process failure has an ambiguous cause and is reported
// immediately rather than silently re-run.
package aria2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Error reports a transfer-engine failure. ExitCode is -1 when the
// subprocess could not be launched at all.
type Error struct {
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("transfer engine failed to launch: %v", e.Err)
	}
	return fmt.Sprintf("transfer engine exited with code %d", e.ExitCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a single transfer pass. SessionPath is created by
// aria2c if absent and continued if present; the driver never deletes it,
// so partially-downloaded byte ranges resume across runs.
type Options struct {
	BinaryPath  string // aria2c executable
	InputFile   string // input descriptor (URL + out= pairs)
	DownloadDir string
	SessionPath string
	Concurrency int // max concurrent downloads (-j)
}

// Args builds the aria2c argument list. Split out for testability.
func Args(opts Options) []string {
	return []string{
		"-c", // continue partial downloads
		fmt.Sprintf("--save-session=%s", opts.SessionPath),
		"--save-session-interval=10",
		fmt.Sprintf("-j%d", opts.Concurrency),
		fmt.Sprintf("-d%s", opts.DownloadDir),
		"--auto-file-renaming=false",
		"--console-log-level=notice",
		"--summary-interval=5",
		"--file-allocation=falloc",
		"--max-tries=5", // per-file auto retry inside the engine
		"--retry-wait=2",
		fmt.Sprintf("-i%s", opts.InputFile),
	}
}

// Run launches aria2c and blocks until it exits. The engine's progress
// output streams to this process's stdout/stderr unmodified.
//
// Returns nil on exit 0, *Error otherwise. On context cancellation the
// subprocess receives SIGINT so aria2c flushes its session file before
// dying; the session is left intact for the next run.
func Run(ctx context.Context, opts Options) error {
	cmd := exec.CommandContext(ctx, opts.BinaryPath, Args(opts)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return &Error{ExitCode: -1, Err: err}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Error{ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &Error{ExitCode: -1, Err: err}
	}
	return nil
}
