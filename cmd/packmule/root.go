// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for packmule.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"packmule/internal/aptly"
	"packmule/internal/config"
	"packmule/internal/dist"
	"packmule/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose raises the log level to debug.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string

	logger *log.Logger
	cfg    *config.Config

	// rootCmd represents the base command when called without any
	// subcommands.
	rootCmd = &cobra.Command{
		Use:   "packmule",
		Short: "Debian repository and release publishing for RabbitMQ packages",
		Long: TitleStyle.Render("packmule") + SubtitleStyle.Render(" - Debian repository and release publishing") + `

packmule ingests build artifacts into per-distribution aptly
repositories and publishes immutable snapshots of them. Packages can
arrive as bare .deb files, as archives bundling many of them, as GitHub
release assets, or by being dropped into a watched inbox directory.

Publishing is snapshot based: repositories accumulate packages, a dated
snapshot freezes their state, and the publish step atomically retargets
the live package tree to that snapshot.

` + SubtitleStyle.Render("Examples:") + `
  packmule repositories set-up
  packmule rabbitmq deb add -a -p rabbitmq-server_4.1.3-1_all.deb
  packmule erlang deb remove -d noble,jammy -v 1:27.3.4.6-1
  packmule rabbitmq deb publish --all
  packmule cli-tools snapshot take -a --suffix rc1
  packmule watch --root /srv/inbox --all`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/packmule/config.yaml)")

	rootCmd.AddCommand(newProjectCommand(dist.ProjectServer))
	rootCmd.AddCommand(newProjectCommand(dist.ProjectErlang))
	rootCmd.AddCommand(newProjectCommand(dist.ProjectCliTools))
	rootCmd.AddCommand(newRepositoriesCommand())
	rootCmd.AddCommand(newWatchCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. It is called by main.main(). Errors that
// carry an explicit exit code use it; anything else that escapes the
// command tree is a usage error by construction, since every workflow
// failure is wrapped by fail().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitUsage))
	}
}

// initRootConfig loads configuration and sets up the logger.
func initRootConfig() {
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		loaded = &config.Config{}
	}
	cfg = loaded
}

// newService builds the aptly workflow service, probing first that the
// external tool is actually invocable.
func newService(ctx context.Context) (*aptly.Service, error) {
	runner := &aptly.ExecRunner{ConfigPath: cfg.AptlyConfig}
	if err := aptly.Available(ctx, runner); err != nil {
		return nil, err
	}
	return aptly.NewService(runner, aptly.Config{
		SigningKey:    cfg.SigningKey,
		Architectures: cfg.Architectures,
		Logger:        logger,
	}), nil
}
