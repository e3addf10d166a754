// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

// newRepositoriesCommand builds the top-level repositories group.
func newRepositoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repositories",
		Short: "Manage the expected set of repositories",
	}

	setUp := &cobra.Command{
		Use:     "set-up",
		Aliases: []string{"setup"},
		Short:   "Create every expected repository",
		Long: `Create one repository per (project, supported distribution) pair.
Repositories that already exist are left alone, so the command can be
re-run at any time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			return fail(svc.EnsureRepositories(cmd.Context()))
		},
	}

	cmd.AddCommand(setUp)
	return cmd
}
