// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"packmule/internal/aptly"
	"packmule/internal/dist"

	"github.com/spf13/cobra"
)

// targetFlags is the distribution-selection flag set shared by every
// command that operates per distribution: --all XOR --distributions, plus
// an optional snapshot suffix.
type targetFlags struct {
	all     bool
	aliases []string
	suffix  string
}

// register wires the selection flags into cmd. The XOR is enforced by
// cobra, so violating it is a usage error before any RunE body executes.
func (f *targetFlags) register(cmd *cobra.Command, withSuffix bool) {
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "target every distribution the project supports")
	cmd.Flags().StringSliceVarP(&f.aliases, "distributions", "d", nil, "comma separated distribution aliases (e.g. noble,bookworm)")
	cmd.MarkFlagsMutuallyExclusive("all", "distributions")
	cmd.MarkFlagsOneRequired("all", "distributions")
	if withSuffix {
		cmd.Flags().StringVar(&f.suffix, "suffix", "", "snapshot suffix (default: current date, DD-Mon-YY)")
	}
}

// resolve turns the selection into concrete target distributions, narrowed
// to what the project supports.
func (f *targetFlags) resolve(project dist.Project) ([]dist.Distribution, error) {
	if f.all {
		return project.Supported(), nil
	}
	requested, err := dist.ParseAll(f.aliases)
	if err != nil {
		return nil, err
	}
	targets := dist.Intersect(requested, project.Supported())
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: none of %v are supported by project %s",
			dist.ErrUnknownAlias, f.aliases, project)
	}
	return targets, nil
}

// resolveSuffix returns the explicit suffix or the service's dated
// default.
func (f *targetFlags) resolveSuffix(svc *aptly.Service) string {
	if f.suffix != "" {
		return f.suffix
	}
	return svc.DefaultSuffix()
}
