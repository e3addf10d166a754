// SPDX-License-Identifier: MPL-2.0

// Package aptly sequences discrete aptly invocations into the repository,
// snapshot, and publish workflows of the release pipeline.
//
// The package never touches aptly's on-disk state directly: every mutation
// is a single external process invocation, atomic from this tool's point
// of view, and aptly's current repository/snapshot/publication listing is
// the only durable state. The Runner interface is the seam between the
// workflow logic and the external process, so the workflows are testable
// against an in-process fake.
package aptly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when the aptly executable cannot be found or
// does not respond to a version probe.
var ErrNotInstalled = errors.New("aptly executable not found, install it first: https://www.aptly.info/download/")

type (
	// Output carries the captured streams of a completed invocation.
	Output struct {
		Stdout string
		Stderr string
	}

	// Runner issues a single aptly invocation. args is the argument vector
	// after the program name; implementations prepend any configuration
	// arguments themselves.
	Runner interface {
		Run(ctx context.Context, args ...string) (Output, error)
	}

	// CommandError is returned when an invocation exits non-zero. It keeps
	// both output streams verbatim for diagnostics.
	CommandError struct {
		Args   []string
		Status int
		Stdout string
		Stderr string
	}

	// ExecRunner is the production Runner: it executes the aptly binary
	// found on PATH.
	ExecRunner struct {
		// ConfigPath, when non-empty, is passed to every invocation as
		// -config=<path>. It allows isolated aptly roots for tests and
		// side-by-side environments.
		ConfigPath string
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("aptly %s failed with status %d\nstdout: %s\nstderr: %s",
		strings.Join(e.Args, " "), e.Status, strings.TrimSpace(e.Stdout), strings.TrimSpace(e.Stderr))
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (Output, error) {
	argv := args
	if r.ConfigPath != "" {
		argv = append([]string{"-config=" + r.ConfigPath}, args...)
	}

	cmd := exec.CommandContext(ctx, "aptly", argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &CommandError{
			Args:   args,
			Status: exitErr.ExitCode(),
			Stdout: out.Stdout,
			Stderr: out.Stderr,
		}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return out, ErrNotInstalled
	}
	return out, fmt.Errorf("run aptly %s: %w", strings.Join(args, " "), err)
}

// Available probes the external tool with a version invocation. It is an
// explicitly constructed capability check rather than a process-global
// memoized one, so tests can exercise both outcomes.
func Available(ctx context.Context, runner Runner) error {
	if _, err := runner.Run(ctx, "version"); err != nil {
		if errors.Is(err, ErrNotInstalled) {
			return err
		}
		return fmt.Errorf("%w (version probe failed: %v)", ErrNotInstalled, err)
	}
	return nil
}
