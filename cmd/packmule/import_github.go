// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"packmule/internal/dist"
	"packmule/internal/github"

	"github.com/spf13/cobra"
)

// newImportFromGitHubCommand builds the release-asset import: fetch the
// matching assets of a GitHub release and run each through the normal add
// path, with one snapshot cycle for the whole batch.
func newImportFromGitHubCommand(project dist.Project) *cobra.Command {
	var (
		targets    targetFlags
		releaseURL string
		patterns   []string
	)

	cmd := &cobra.Command{
		Use:   "import-from-github",
		Short: "Import the .deb assets of a GitHub release",
		Long: `Download the assets of a GitHub release and add them to the
repositories of the target distributions.

Assets are selected by glob patterns matched against their filenames;
the default pattern imports every .deb. One dated snapshot per
distribution is refreshed after all assets are in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			release, err := github.ParseReleaseURL(releaseURL)
			if err != nil {
				return fail(err)
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			dists, err := targets.resolve(project)
			if err != nil {
				return fail(err)
			}

			dl, err := github.NewDownloader(cfg.GitHubToken, logger).
				FetchAssets(cmd.Context(), release, patterns)
			if err != nil {
				return fail(err)
			}
			defer dl.Close()

			for _, file := range dl.Files {
				if err := svc.ImportFile(cmd.Context(), project, dists, file); err != nil {
					return fail(err)
				}
			}
			return fail(svc.RefreshSnapshots(cmd.Context(), project, dists, targets.resolveSuffix(svc)))
		},
	}

	targets.register(cmd, true)
	cmd.Flags().StringVar(&releaseURL, "github-release-url", "", "release page URL (https://github.com/{owner}/{repo}/releases/tag/{tag})")
	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "asset filename glob (repeatable, default *.deb)")
	cmd.MarkFlagRequired("github-release-url")
	return cmd
}
