// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"packmule/internal/aptly"
	"packmule/internal/archive"
	"packmule/internal/debfile"
	"packmule/internal/dist"
	"packmule/internal/github"
	"packmule/pkg/types"
)

// errRPMNotSupported is returned by every rpm subcommand. The group exists
// for command-surface parity with deb; the packages themselves are not
// produced yet.
var errRPMNotSupported = errors.New("rpm packages are not yet supported")

// ExitError signals a specific process exit code without forcing os.Exit
// in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the underlying message.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

// fail wraps a workflow error with its exit code. nil passes through so
// RunE bodies can end with `return fail(err)`.
func fail(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: classify(err), Err: err}
}

// classify maps workflow errors onto the sysexits-style code space: bad
// input data is 65, everything else that went wrong at runtime is 70.
// Usage errors (64) never reach here; they are produced by the flag layer
// or returned as explicit ExitErrors.
func classify(err error) types.ExitCode {
	dataErrs := []error{
		dist.ErrUnknownAlias,
		dist.ErrUnknownProject,
		debfile.ErrNotDeb,
		debfile.ErrMalformedName,
		archive.ErrNoPackages,
		aptly.ErrPackageMissing,
		github.ErrInvalidReleaseURL,
		github.ErrNoAssets,
	}
	for _, target := range dataErrs {
		if errors.Is(err, target) {
			return types.ExitData
		}
	}
	return types.ExitSoftware
}
