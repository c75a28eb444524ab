// Package installer runs the matrix CLI for an install request and reports its
// output and outcome as events.
package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/matrix-installer/internal/events"
	"github.com/ensigniasec/matrix-installer/internal/link"
)

const (
	// DefaultBinary is the matrix CLI looked up on PATH.
	DefaultBinary = "matrix"
	// hubEnv points the CLI at a hub other than its default.
	hubEnv = "MATRIX_HUB_BASE"
	// spawnFailureCode is reported when the CLI could not be run or was killed.
	spawnFailureCode = -1

	maxLineBytes = 1 << 20
	// stopGrace is how long the CLI gets to exit after SIGTERM before it is killed.
	stopGrace = 5 * time.Second
)

// CLIExists reports whether bin resolves to an executable.
func CLIExists(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// Runner spawns the CLI and publishes its output.
type Runner struct {
	Binary    string
	Publisher events.Publisher
}

// NewRunner returns a Runner for bin, falling back to DefaultBinary.
func NewRunner(bin string, pub events.Publisher) *Runner {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Runner{Binary: bin, Publisher: pub}
}

// Install runs the CLI for req, publishing every output line as log-line and
// then exactly one install-complete. The published completion is returned.
func (r *Runner) Install(ctx context.Context, req link.Request) events.Completion {
	code, err := r.Run(ctx, req)
	if err != nil {
		logrus.Debugf("install %s failed to run: %v", req.Alias, err)
		r.publish(events.LogLine, "FATAL ERROR: "+err.Error())
		code = spawnFailureCode
	}
	c := events.Completion{OK: err == nil && code == 0, Code: code, Alias: req.Alias}
	r.publish(events.InstallComplete, c)
	return c
}

// Run executes `<bin> install <entity> --alias <alias>` without a shell and
// returns its exit code. Output lines from stdout and stderr are published as
// they arrive. An error means the process could not be started or waited on.
func (r *Runner) Run(ctx context.Context, req link.Request) (int, error) {
	cmd := exec.CommandContext(ctx, r.Binary, "install", req.Entity, "--alias", req.Alias) //nolint:gosec // arguments are validated link fields, no shell involved.
	if req.Hub != "" {
		cmd.Env = append(os.Environ(), hubEnv+"="+req.Hub)
	}
	// Cancellation asks the CLI to stop so it can clean up a partial install.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnFailureCode, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnFailureCode, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	logrus.Debugf("running %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return spawnFailureCode, fmt.Errorf("failed to start command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.streamLines(stdoutPipe, "stdout")
	}()
	go func() {
		defer wg.Done()
		r.streamLines(stderrPipe, "stderr")
	}()
	// Pipes must be drained before Wait closes them.
	wg.Wait()

	err = cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the process was killed by a signal.
		return exitErr.ExitCode(), nil
	}
	return spawnFailureCode, fmt.Errorf("command failed: %w", err)
}

func (r *Runner) streamLines(rd io.Reader, stream string) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)
	for sc.Scan() {
		r.publish(events.LogLine, sc.Text())
	}
	if err := sc.Err(); err != nil {
		logrus.Debugf("reading %s: %v", stream, err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, rd)
	}
}

func (r *Runner) publish(topic string, payload any) {
	if r.Publisher == nil {
		return
	}
	if err := r.Publisher.Publish(topic, payload); err != nil {
		logrus.Debugf("publish %s: %v", topic, err)
	}
}
