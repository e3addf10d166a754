// SPDX-License-Identifier: MPL-2.0

// Package dist enumerates the supported Debian and Ubuntu distributions and
// the projects whose packages are published for them. The catalog is closed:
// every alias maps to exactly one family and release name, fixed at compile
// time, and all repository/snapshot/publish identities are derived from it.
package dist

import (
	"errors"
	"fmt"
)

// ErrUnknownAlias is the sentinel error wrapped by UnknownAliasError.
var ErrUnknownAlias = errors.New("unknown distribution alias")

type (
	// Family is the Debian-like vs Ubuntu-like classification of a
	// distribution, used as the middle segment of publish paths.
	Family string

	// Distribution is an immutable member of the supported-distribution
	// catalog.
	Distribution struct {
		// Alias is the stable short name used on the command line and in
		// repository/snapshot identities.
		Alias string
		// Family is the distribution's package family.
		Family Family
		// ReleaseName is the distribution's release codename. For every
		// catalog member it equals Alias; aptly publications are addressed
		// by it.
		ReleaseName string
	}

	// UnknownAliasError is returned when an alias is not in the catalog.
	UnknownAliasError struct {
		Alias string
	}
)

const (
	FamilyDebian Family = "debian"
	FamilyUbuntu Family = "ubuntu"
)

// catalog is ordered Ubuntu-first, newest release first, matching the order
// repositories are created and listed in.
var catalog = []Distribution{
	{Alias: "noble", Family: FamilyUbuntu, ReleaseName: "noble"},
	{Alias: "jammy", Family: FamilyUbuntu, ReleaseName: "jammy"},
	{Alias: "focal", Family: FamilyUbuntu, ReleaseName: "focal"},
	{Alias: "trixie", Family: FamilyDebian, ReleaseName: "trixie"},
	{Alias: "bookworm", Family: FamilyDebian, ReleaseName: "bookworm"},
	{Alias: "bullseye", Family: FamilyDebian, ReleaseName: "bullseye"},
}

// Error implements the error interface.
func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown distribution alias %q", e.Alias)
}

// Unwrap returns ErrUnknownAlias so callers can use errors.Is for
// programmatic detection.
func (e *UnknownAliasError) Unwrap() error { return ErrUnknownAlias }

// String returns the distribution's alias.
func (d Distribution) String() string { return d.Alias }

// All returns the full catalog in publication order. The returned slice is
// a copy; callers may reorder it freely.
func All() []Distribution {
	out := make([]Distribution, len(catalog))
	copy(out, catalog)
	return out
}

// Parse resolves an alias to its catalog entry.
func Parse(alias string) (Distribution, error) {
	for _, d := range catalog {
		if d.Alias == alias {
			return d, nil
		}
	}
	return Distribution{}, &UnknownAliasError{Alias: alias}
}

// ParseAll resolves a list of aliases, failing on the first unknown one.
func ParseAll(aliases []string) ([]Distribution, error) {
	out := make([]Distribution, 0, len(aliases))
	for _, alias := range aliases {
		d, err := Parse(alias)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Intersect returns the members of requested that appear in supported,
// preserving the order of requested.
func Intersect(requested, supported []Distribution) []Distribution {
	out := make([]Distribution, 0, len(requested))
	for _, r := range requested {
		for _, s := range supported {
			if r.Alias == s.Alias {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
