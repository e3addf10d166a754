// SPDX-License-Identifier: MPL-2.0

// Package github imports release assets published on GitHub into the
// ingestion pipeline. Assets are matched by glob patterns against their
// filenames and downloaded into a temporary directory the caller owns.
package github

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultAssetPatterns matches installable packages only. Release pages
// routinely carry checksums, signatures, and source tarballs next to the
// packages.
var DefaultAssetPatterns = []string{"*.deb"}

var (
	// ErrInvalidReleaseURL is the sentinel error wrapped by
	// InvalidReleaseURLError.
	ErrInvalidReleaseURL = errors.New("invalid GitHub release URL")
	// ErrNoAssets is returned when no release asset matches the requested
	// patterns.
	ErrNoAssets = errors.New("no release assets match")
)

type (
	// Release identifies one tagged release of a GitHub repository.
	Release struct {
		Owner string
		Repo  string
		Tag   string
	}

	// InvalidReleaseURLError is returned for URLs that are not release
	// page URLs of the form
	// https://github.com/{owner}/{repo}/releases/tag/{tag}.
	InvalidReleaseURLError struct {
		URL    string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidReleaseURLError) Error() string {
	return fmt.Sprintf("invalid GitHub release URL %q: %s", e.URL, e.Reason)
}

// Unwrap returns ErrInvalidReleaseURL so callers can use errors.Is for
// programmatic detection.
func (e *InvalidReleaseURLError) Unwrap() error { return ErrInvalidReleaseURL }

// String returns the release page URL.
func (r Release) String() string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/tag/%s", r.Owner, r.Repo, r.Tag)
}

// ParseReleaseURL extracts the owner, repository, and tag from a release
// page URL. Tags containing slashes survive the round trip; everything
// after releases/tag/ belongs to the tag.
func ParseReleaseURL(raw string) (Release, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Release{}, &InvalidReleaseURLError{URL: raw, Reason: err.Error()}
	}
	if u.Host != "github.com" {
		return Release{}, &InvalidReleaseURLError{URL: raw, Reason: "host must be github.com"}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 5 || segments[2] != "releases" || segments[3] != "tag" {
		return Release{}, &InvalidReleaseURLError{
			URL:    raw,
			Reason: "expected path /{owner}/{repo}/releases/tag/{tag}",
		}
	}
	for _, s := range segments[:2] {
		if s == "" {
			return Release{}, &InvalidReleaseURLError{URL: raw, Reason: "empty owner or repository"}
		}
	}

	return Release{
		Owner: segments[0],
		Repo:  segments[1],
		Tag:   strings.Join(segments[4:], "/"),
	}, nil
}

// matchesAny reports whether an asset filename matches at least one of the
// glob patterns. Pattern syntax errors count as non-matches; patterns are
// validated up front by the command layer.
func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns rejects malformed glob patterns before any network
// traffic happens.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid asset pattern %q", p)
		}
	}
	return nil
}
