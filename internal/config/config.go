// SPDX-License-Identifier: MPL-2.0

// Package config loads tool configuration from an optional config file and
// the environment. Every setting has a working default; a missing config
// file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory and
	// the environment variable prefix.
	AppName = "packmule"
	// ConfigFileName is the name of the config file without extension.
	ConfigFileName = "config"
)

// Config holds the resolved tool configuration.
type Config struct {
	// SigningKey is the GPG key id used to sign publications.
	SigningKey string `mapstructure:"signing_key"`

	// Architectures is the architecture filter for multi-arch package
	// additions.
	Architectures []string `mapstructure:"architectures"`

	// AptlyConfig is the path passed to aptly as -config=. Empty uses
	// aptly's own resolution. The plain APTLY_CONFIG environment variable
	// is honored alongside the prefixed form.
	AptlyConfig string `mapstructure:"aptly_config"`

	// WatchRoot is the default inbox directory for the watch command.
	WatchRoot string `mapstructure:"watch_root"`

	// GitHubToken authenticates GitHub API requests for release imports.
	// Empty means anonymous, rate-limited access.
	GitHubToken string `mapstructure:"github_token"`
}

// Load resolves the configuration. When path is non-empty that file is
// used exclusively and must exist; otherwise the config directory and the
// working directory are searched, and absence falls back to defaults.
// Environment variables use the PACKMULE_ prefix (PACKMULE_SIGNING_KEY
// and so on) and override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("signing_key", "")
	v.SetDefault("architectures", []string{})
	v.SetDefault("aptly_config", "")
	v.SetDefault("watch_root", "")
	v.SetDefault("github_token", "")

	v.SetEnvPrefix("PACKMULE")
	v.AutomaticEnv()
	// aptly's own environment variable keeps working so one setting drives
	// both this tool and direct aptly invocations.
	if err := v.BindEnv("aptly_config", "PACKMULE_APTLY_CONFIG", "APTLY_CONFIG"); err != nil {
		return nil, fmt.Errorf("bind environment: %w", err)
	}
	if err := v.BindEnv("github_token", "PACKMULE_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Dir returns the configuration directory, $XDG_CONFIG_HOME/packmule with
// the usual ~/.config fallback.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName), nil
}
