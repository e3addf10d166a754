// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"

	"packmule/internal/dist"
	"packmule/internal/watch"
	"packmule/pkg/types"

	"github.com/spf13/cobra"
)

// newWatchCommand builds the inbox watcher command.
func newWatchCommand() *cobra.Command {
	var (
		targets   targetFlags
		root      string
		maxEvents int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an inbox directory and import dropped packages",
		Long: `Watch the per-project subdirectories of an inbox root and import
every .deb dropped into them. Files are added to the repositories of
the target distributions without creating snapshots; snapshotting and
publishing remain explicit operator actions.

The per-project subdirectories (rabbitmq-server, rabbitmq-erlang,
rabbitmq-cli) are created if missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root == "" {
				root = cfg.WatchRoot
			}
			if root == "" {
				return &ExitError{
					Code: types.ExitUsage,
					Err:  errors.New("an inbox root is required: pass --root or set watch_root in the config"),
				}
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return fail(err)
			}
			// The requested set is narrowed per project inside the watcher,
			// so it is resolved against the full catalog here.
			dists := dist.All()
			if !targets.all {
				if dists, err = dist.ParseAll(targets.aliases); err != nil {
					return fail(err)
				}
			}

			w, err := watch.New(watch.Config{
				Root:          root,
				Distributions: dists,
				MaxImports:    maxEvents,
				Logger:        logger,
				Import: func(ctx context.Context, project dist.Project, targets []dist.Distribution, path string) error {
					return svc.ImportFile(ctx, project, targets, path)
				},
			})
			if err != nil {
				return fail(err)
			}
			return fail(w.Run(cmd.Context()))
		},
	}

	targets.register(cmd, false)
	cmd.Flags().StringVar(&root, "root", "", "inbox root directory (default: watch_root from the config)")
	cmd.Flags().IntVar(&maxEvents, "max-events", -1, "stop after importing this many files (-1: run until interrupted)")
	return cmd
}
