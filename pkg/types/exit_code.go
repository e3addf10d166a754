// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// The process-level exit statuses follow the BSD sysexits convention so
// that release automation can distinguish operator mistakes from bad
// inputs and from infrastructure failures.
const (
	// ExitOK means the requested workflow completed.
	ExitOK ExitCode = 0
	// ExitUsage means the command line itself was malformed (missing or
	// conflicting arguments, unknown subcommand).
	ExitUsage ExitCode = 64
	// ExitData means the inputs were invalid: a missing package file, an
	// unknown distribution alias, a malformed filename, an archive with no
	// installable packages in it.
	ExitData ExitCode = 65
	// ExitSoftware means a runtime failure: a non-zero aptly exit, an
	// archive decoder error, a filesystem or network failure.
	ExitSoftware ExitCode = 70
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
