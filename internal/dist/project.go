// SPDX-License-Identifier: MPL-2.0

package dist

import (
	"errors"
	"fmt"
)

// ErrUnknownProject is the sentinel error wrapped by UnknownProjectError.
var ErrUnknownProject = errors.New("unknown project")

type (
	// Project identifies one of the software projects whose packages this
	// tool distributes. The set is closed.
	Project string

	// UnknownProjectError is returned when a name does not identify a
	// project.
	UnknownProjectError struct {
		Name string
	}
)

const (
	// ProjectServer is the server itself, the only multi-architecture
	// project.
	ProjectServer Project = "rabbitmq"
	// ProjectErlang is the Erlang/OTP runtime the server depends on. It is
	// packaged for a strict subset of the supported distributions.
	ProjectErlang Project = "erlang"
	// ProjectCliTools covers the standalone command line tools.
	ProjectCliTools Project = "cli-tools"
)

// Projects returns every project in a stable order.
func Projects() []Project {
	return []Project{ProjectServer, ProjectErlang, ProjectCliTools}
}

// erlangSupported is the subset of the catalog Erlang packages are built
// for. Older releases ship an Erlang that is too old to support.
var erlangSupported = []string{"noble", "jammy", "trixie", "bookworm"}

// Error implements the error interface.
func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project %q", e.Name)
}

// Unwrap returns ErrUnknownProject so callers can use errors.Is for
// programmatic detection.
func (e *UnknownProjectError) Unwrap() error { return ErrUnknownProject }

// String returns the project's command line name.
func (p Project) String() string { return string(p) }

// NamePrefix returns the token used in repository and snapshot identities
// and as the leading segment of publish paths.
func (p Project) NamePrefix() string {
	switch p {
	case ProjectServer:
		return "rabbitmq-server"
	case ProjectErlang:
		return "rabbitmq-erlang"
	case ProjectCliTools:
		return "rabbitmq-cli"
	}
	return ""
}

// Supported returns the distributions packages of this project are
// published for. The result is never empty.
func (p Project) Supported() []Distribution {
	if p != ProjectErlang {
		return All()
	}
	out := make([]Distribution, 0, len(erlangSupported))
	for _, alias := range erlangSupported {
		d, err := Parse(alias)
		if err != nil {
			// The subset is a compile-time constant drawn from the catalog.
			panic(err)
		}
		out = append(out, d)
	}
	return out
}

// MultiArch reports whether aptly should be told to accept every supported
// package architecture when adding this project's packages. Only the server
// ships multi-arch packages.
func (p Project) MultiArch() bool { return p == ProjectServer }

// ParseProject resolves a command line name to a Project.
func ParseProject(name string) (Project, error) {
	for _, p := range Projects() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", &UnknownProjectError{Name: name}
}
