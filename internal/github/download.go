// SPDX-License-Identifier: MPL-2.0

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gh "github.com/google/go-github/v67/github"
)

type (
	// releaseClient is the slice of the GitHub API the downloader needs,
	// extracted so tests can substitute a fake.
	releaseClient interface {
		GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*gh.RepositoryRelease, *gh.Response, error)
		DownloadReleaseAsset(ctx context.Context, owner, repo string, id int64, followRedirectsClient *http.Client) (io.ReadCloser, string, error)
	}

	// Downloader fetches matching release assets to local files.
	Downloader struct {
		client releaseClient
		http   *http.Client
		log    *log.Logger
	}

	// Download holds the fetched asset files. It exclusively owns the
	// temporary directory they live in; Close releases it.
	Download struct {
		// Files are the paths of the downloaded assets, in release order.
		Files []string

		tempDir string
	}
)

// NewDownloader creates a Downloader backed by the public GitHub API.
// token may be empty; anonymous access is rate limited but sufficient for
// occasional imports.
func NewDownloader(token string, logger *log.Logger) *Downloader {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Downloader{
		client: client.Repositories,
		http:   http.DefaultClient,
		log:    logger,
	}
}

// FetchAssets downloads every asset of the release whose filename matches
// one of the patterns. An empty pattern list means DefaultAssetPatterns.
func (d *Downloader) FetchAssets(ctx context.Context, release Release, patterns []string) (*Download, error) {
	if len(patterns) == 0 {
		patterns = DefaultAssetPatterns
	}
	if err := ValidatePatterns(patterns); err != nil {
		return nil, err
	}

	rel, _, err := d.client.GetReleaseByTag(ctx, release.Owner, release.Repo, release.Tag)
	if err != nil {
		return nil, fmt.Errorf("fetch release %s: %w", release, err)
	}

	var matched []*gh.ReleaseAsset
	for _, asset := range rel.Assets {
		if matchesAny(asset.GetName(), patterns) {
			matched = append(matched, asset)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w %v on release %s", ErrNoAssets, patterns, release)
	}

	dir, err := os.MkdirTemp("", "packmule-assets-")
	if err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	dl := &Download{tempDir: dir}
	for _, asset := range matched {
		path, err := d.fetchAsset(ctx, release, asset, dir)
		if err != nil {
			dl.Close()
			return nil, err
		}
		dl.Files = append(dl.Files, path)
	}
	return dl, nil
}

func (d *Downloader) fetchAsset(ctx context.Context, release Release, asset *gh.ReleaseAsset, dir string) (string, error) {
	name := asset.GetName()
	d.log.Info("downloading release asset", "asset", name, "size", asset.GetSize())

	rc, _, err := d.client.DownloadReleaseAsset(ctx, release.Owner, release.Repo, asset.GetID(), d.http)
	if err != nil {
		return "", fmt.Errorf("download asset %s: %w", name, err)
	}
	defer rc.Close()

	// Asset names come from the API, not from a trusted path; keep only
	// the base name.
	path := filepath.Join(dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close asset %s: %w", name, err)
	}
	return path, nil
}

// Close deletes the download directory. It is safe to call more than once.
func (d *Download) Close() error {
	if d.tempDir == "" {
		return nil
	}
	dir := d.tempDir
	d.tempDir = ""
	return os.RemoveAll(dir)
}
