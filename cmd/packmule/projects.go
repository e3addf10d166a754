// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"packmule/internal/dist"
	"packmule/pkg/types"

	"github.com/spf13/cobra"
)

// newProjectCommand builds the command group for one project:
// deb/rpm package operations and the snapshot ops surface.
func newProjectCommand(project dist.Project) *cobra.Command {
	cmd := &cobra.Command{
		Use:   project.String(),
		Short: fmt.Sprintf("Manage %s packages and snapshots", project.NamePrefix()),
	}
	cmd.AddCommand(newDebCommand(project))
	cmd.AddCommand(newRPMCommand(project))
	cmd.AddCommand(newSnapshotCommand(project))
	return cmd
}

// newDebCommand builds the Debian package operations for a project.
// Erlang packages are only ever built in-house, so it has no GitHub
// import.
func newDebCommand(project dist.Project) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deb",
		Short: "Debian package operations",
	}
	cmd.AddCommand(newDebAddCommand(project))
	cmd.AddCommand(newDebRemoveCommand(project))
	cmd.AddCommand(newDebPublishCommand(project))
	if project != dist.ProjectErlang {
		cmd.AddCommand(newImportFromGitHubCommand(project))
	}
	return cmd
}

func newDebAddCommand(project dist.Project) *cobra.Command {
	var (
		targets targetFlags
		path    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a package file or archive of packages to the repositories",
		Long: `Add a package to the repositories of the target distributions.

The file may be a bare .deb or an archive (.tar, .tar.gz, .tgz, .zip)
bundling several of them; archives are extracted and every contained
.deb is added. One dated snapshot per distribution is refreshed after
all files are in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := targets.resolve(project)
			if err != nil {
				return fail(err)
			}
			return fail(svc.AddPackage(cmd.Context(), project, dists, path, targets.resolveSuffix(svc)))
		},
	}

	targets.register(cmd, true)
	cmd.Flags().StringVarP(&path, "package-file-path", "p", "", "package file or archive to add")
	cmd.MarkFlagRequired("package-file-path")
	return cmd
}

func newDebRemoveCommand(project dist.Project) *cobra.Command {
	var (
		targets targetFlags
		path    string
		version string
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a package version from the repositories",
		Long: `Remove packages from the repositories of the target distributions.

Pass --version to remove one exact version, or --package-file-path to
derive the set of versions from a package file or archive and remove
each of them. One dated snapshot per distribution is refreshed after
the removals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := targets.resolve(project)
			if err != nil {
				return fail(err)
			}
			suffix := targets.resolveSuffix(svc)
			if version != "" {
				return fail(svc.RemoveVersion(cmd.Context(), project, dists, version, suffix))
			}
			return fail(svc.RemoveArchive(cmd.Context(), project, dists, path, suffix))
		},
	}

	targets.register(cmd, true)
	cmd.Flags().StringVarP(&path, "package-file-path", "p", "", "package file or archive whose versions should be removed")
	cmd.Flags().StringVarP(&version, "version", "v", "", "exact package version to remove")
	cmd.MarkFlagsMutuallyExclusive("package-file-path", "version")
	cmd.MarkFlagsOneRequired("package-file-path", "version")
	return cmd
}

func newDebPublishCommand(project dist.Project) *cobra.Command {
	var targets targetFlags

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Atomically publish the current dated snapshots",
		Long: `Retarget the published package tree of each target distribution to
its current dated snapshot. Existing publications are switched
atomically; distributions without one get an initial publication.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := targets.resolve(project)
			if err != nil {
				return fail(err)
			}
			return fail(svc.Publish(cmd.Context(), project, dists))
		},
	}

	targets.register(cmd, false)
	return cmd
}

// newRPMCommand mirrors the deb subcommand surface. Every subcommand
// reports that rpm packages are not produced yet.
func newRPMCommand(project dist.Project) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpm",
		Short: "RPM package operations (not yet supported)",
	}

	names := []string{"add", "remove", "publish"}
	if project != dist.ProjectErlang {
		names = append(names, "import-from-github")
	}
	for _, name := range names {
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: "Not yet supported",
			RunE: func(*cobra.Command, []string) error {
				return &ExitError{Code: types.ExitUsage, Err: errRPMNotSupported}
			},
		})
	}
	return cmd
}

// newSnapshotCommand builds the snapshot ops surface: the individual
// halves of the drop-then-create cycle plus a listing.
func newSnapshotCommand(project dist.Project) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot operations",
	}

	var takeTargets targetFlags
	take := &cobra.Command{
		Use:   "take",
		Short: "Create a snapshot of each target distribution's repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := takeTargets.resolve(project)
			if err != nil {
				return fail(err)
			}
			return fail(svc.TakeSnapshots(cmd.Context(), project, dists, takeTargets.resolveSuffix(svc)))
		},
	}
	takeTargets.register(take, true)

	var listTargets targetFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Show each target distribution's snapshot with its packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := listTargets.resolve(project)
			if err != nil {
				return fail(err)
			}
			return fail(svc.ListSnapshots(cmd.Context(), cmd.OutOrStdout(), project, dists, listTargets.resolveSuffix(svc)))
		},
	}
	listTargets.register(list, true)

	var deleteTargets targetFlags
	del := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"remove"},
		Short:   "Drop each target distribution's snapshot",
		Long: `Drop the suffix-named snapshot of each target distribution. Dropping
a snapshot that does not exist is not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := deleteTargets.resolve(project)
			if err != nil {
				return fail(err)
			}
			svc.DeleteSnapshots(cmd.Context(), project, dists, deleteTargets.resolveSuffix(svc))
			return nil
		},
	}
	deleteTargets.register(del, true)

	cmd.AddCommand(take, list, del)
	return cmd
}
