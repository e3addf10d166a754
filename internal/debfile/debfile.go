// SPDX-License-Identifier: MPL-2.0

// Package debfile derives package metadata from .deb filenames.
//
// The supported naming convention is the standard three-field form
// name_version_architecture.deb. Package names may contain underscores;
// the version and architecture fields never do, so the stem is split from
// the right: the last two fields are always the architecture and the
// version, and everything before them is the name.
package debfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the filename suffix of an installable package.
const Extension = ".deb"

var (
	// ErrNotDeb is returned for filenames without the .deb suffix.
	ErrNotDeb = errors.New("not a .deb file")
	// ErrMalformedName is returned for .deb filenames with fewer than
	// three underscore-separated fields.
	ErrMalformedName = errors.New("malformed .deb filename")
)

// Version returns the version field of a .deb filename. The field is
// returned as an opaque token: epochs ("1:27.3-1") and embedded dots,
// dashes, and colons are preserved verbatim.
func Version(filename string) (string, error) {
	base := filepath.Base(filename)
	if !strings.HasSuffix(base, Extension) {
		return "", fmt.Errorf("%w: %s", ErrNotDeb, base)
	}

	stem := strings.TrimSuffix(base, Extension)

	// Split from the right so underscores inside the package name cannot
	// shift the version field.
	archSep := strings.LastIndex(stem, "_")
	if archSep <= 0 {
		return "", fmt.Errorf("%w (expected name_version_arch%s): %s", ErrMalformedName, Extension, base)
	}
	versionSep := strings.LastIndex(stem[:archSep], "_")
	if versionSep <= 0 {
		return "", fmt.Errorf("%w (expected name_version_arch%s): %s", ErrMalformedName, Extension, base)
	}

	return stem[versionSep+1 : archSep], nil
}

// Versions returns the deduplicated, sorted set of versions found in the
// given .deb file paths. Archives routinely carry the same version once per
// architecture; removal workflows need each version only once.
func Versions(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		v, err := Version(p)
		if err != nil {
			return nil, err
		}
		seen[v] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
