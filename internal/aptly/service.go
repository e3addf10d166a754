// SPDX-License-Identifier: MPL-2.0

package aptly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"packmule/internal/archive"
	"packmule/internal/debfile"
	"packmule/internal/dist"

	"github.com/charmbracelet/log"
)

// DefaultSigningKey is the release signing key passed to publish
// operations unless overridden in configuration.
const DefaultSigningKey = "0A9AF2115F4687BD29803A206B73A36E6026DFCA"

// DefaultArchitectures are the package architectures accepted when adding
// multi-arch project packages.
var DefaultArchitectures = []string{"amd64", "arm64", "armel", "armhf", "i386"}

// ErrPackageMissing is the sentinel error wrapped by PackageFileError.
var ErrPackageMissing = errors.New("package file does not exist")

type (
	// PackageFileError is returned when the package file named on the
	// command line does not exist.
	PackageFileError struct {
		Path string
	}

	// DropOutcome records how a snapshot drop inside a drop-then-create
	// cycle went. Drops are idempotent-on-absence: a failed drop (most
	// commonly "snapshot does not exist") is logged and absorbed so it
	// never blocks the subsequent create.
	DropOutcome int

	// Config carries the injectable settings of a Service. Zero values
	// fall back to package defaults.
	Config struct {
		// SigningKey is the GPG key id used for publish operations.
		SigningKey string
		// Architectures is the multi-arch architecture filter.
		Architectures []string
		// Logger receives workflow progress; nil uses log.Default().
		Logger *log.Logger
		// Now supplies the current time for dated suffixes; nil uses
		// time.Now.
		Now func() time.Time
	}

	// Service runs the repository, snapshot, and publish workflows against
	// a Runner. All workflows are strictly sequential: one invocation
	// completes before the next is issued, and the first non-drop failure
	// aborts the remaining distributions and surfaces to the caller.
	Service struct {
		runner Runner
		log    *log.Logger
		key    string
		archs  []string
		now    func() time.Time
	}
)

const (
	// DropSucceeded means the snapshot existed and was dropped.
	DropSucceeded DropOutcome = iota
	// DropIgnoredFailure means the drop failed and the failure was
	// absorbed.
	DropIgnoredFailure
)

// Error implements the error interface.
func (e *PackageFileError) Error() string {
	return fmt.Sprintf("package file does not exist at %s", e.Path)
}

// Unwrap returns ErrPackageMissing so callers can use errors.Is for
// programmatic detection.
func (e *PackageFileError) Unwrap() error { return ErrPackageMissing }

// String returns a short name for the outcome, for log output.
func (o DropOutcome) String() string {
	if o == DropSucceeded {
		return "dropped"
	}
	return "ignored-failure"
}

// NewService creates a Service around the given runner.
func NewService(runner Runner, cfg Config) *Service {
	s := &Service{
		runner: runner,
		log:    cfg.Logger,
		key:    cfg.SigningKey,
		archs:  cfg.Architectures,
		now:    cfg.Now,
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.key == "" {
		s.key = DefaultSigningKey
	}
	if len(s.archs) == 0 {
		s.archs = DefaultArchitectures
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// DefaultSuffix returns the dated suffix for the service's current time.
func (s *Service) DefaultSuffix() string { return DefaultSuffix(s.now()) }

// EnsureRepositories creates every expected repository for every
// (project, supported distribution) pair, skipping ones aptly already
// knows about. Running it twice leaves the same set of repositories.
func (s *Service) EnsureRepositories(ctx context.Context) error {
	out, err := s.runner.Run(ctx, "repo", "list", "-raw")
	if err != nil {
		return err
	}
	existing := make(map[string]struct{})
	for _, line := range strings.Split(out.Stdout, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			existing[name] = struct{}{}
		}
	}

	for _, project := range dist.Projects() {
		for _, d := range project.Supported() {
			repo := RepoName(project, d)
			if _, ok := existing[repo]; ok {
				s.log.Debug("repository already exists", "repo", repo)
				continue
			}
			s.log.Info("creating repository", "repo", repo)
			if _, err := s.runner.Run(ctx, "repo", "create", repo); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddPackage ingests a build artifact into every target distribution's
// repository and refreshes the suffix-named snapshot of each. A bare .deb
// is added directly; a container archive is extracted and every contained
// .deb is added, with exactly one snapshot cycle per distribution for the
// whole batch.
func (s *Service) AddPackage(ctx context.Context, project dist.Project, targets []dist.Distribution, path, suffix string) error {
	src, err := s.openSource(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if src.FromArchive() {
		s.log.Info("adding packages from archive", "count", len(src.Debs), "archive", path)
	}
	for _, deb := range src.Debs {
		if err := s.addFile(ctx, project, targets, deb); err != nil {
			return err
		}
	}
	return s.refreshSnapshots(ctx, project, targets, suffix)
}

// ImportFile adds a single .deb to every target distribution's repository
// without touching snapshots. This is the watcher's ingestion path:
// watcher imports arrive in bursts, and snapshotting is deferred to an
// explicit operator action.
func (s *Service) ImportFile(ctx context.Context, project dist.Project, targets []dist.Distribution, path string) error {
	if err := s.checkExists(path); err != nil {
		return err
	}
	return s.addFile(ctx, project, targets, path)
}

// RefreshSnapshots runs the drop-then-create snapshot cycle once per
// target distribution. Batch ingestion paths call it after all files are
// added so a large batch produces one snapshot per distribution, not one
// per file.
func (s *Service) RefreshSnapshots(ctx context.Context, project dist.Project, targets []dist.Distribution, suffix string) error {
	return s.refreshSnapshots(ctx, project, targets, suffix)
}

// RemoveVersion removes the packages matching the project's query for the
// given version from every target distribution's repository, then
// refreshes the suffix-named snapshots.
func (s *Service) RemoveVersion(ctx context.Context, project dist.Project, targets []dist.Distribution, version, suffix string) error {
	for _, d := range targets {
		if err := s.removeVersion(ctx, project, d, version); err != nil {
			return err
		}
	}
	return s.refreshSnapshots(ctx, project, targets, suffix)
}

// RemoveArchive derives the distinct set of versions present in a build
// artifact and removes each from every target distribution's repository,
// with one snapshot cycle per distribution for the whole batch.
func (s *Service) RemoveArchive(ctx context.Context, project dist.Project, targets []dist.Distribution, path, suffix string) error {
	src, err := s.openSource(path)
	if err != nil {
		return err
	}
	defer src.Close()

	versions, err := debfile.Versions(src.Debs)
	if err != nil {
		return err
	}
	s.log.Info("removing versions found in archive", "versions", versions, "archive", path)

	for _, version := range versions {
		for _, d := range targets {
			if err := s.removeVersion(ctx, project, d, version); err != nil {
				return err
			}
		}
	}
	return s.refreshSnapshots(ctx, project, targets, suffix)
}

// Publish retargets every target distribution's publication to its
// current dated snapshot. An existing publication is switched atomically;
// a distribution without one gets an initial publish instead, because the
// two aptly operations are not interchangeable.
func (s *Service) Publish(ctx context.Context, project dist.Project, targets []dist.Distribution) error {
	suffix := s.DefaultSuffix()
	for _, d := range targets {
		snapshot := SnapshotName(project, d, suffix)
		path := PublishPath(project, d)

		exists, err := s.publicationExists(ctx, path, d.ReleaseName)
		if err != nil {
			return err
		}

		if exists {
			s.log.Info("switching publication", "path", path, "snapshot", snapshot)
			_, err = s.runner.Run(ctx, "publish", "switch", s.gpgArg(), d.ReleaseName, path, snapshot)
		} else {
			s.log.Info("publishing snapshot for the first time", "path", path, "snapshot", snapshot)
			_, err = s.runner.Run(ctx, "publish", "snapshot", "-distribution", d.ReleaseName, s.gpgArg(), snapshot, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// TakeSnapshots creates the suffix-named snapshot of every target
// distribution's repository. This is only the create half of the
// drop-then-create cycle; an existing same-named snapshot makes the
// create fail.
func (s *Service) TakeSnapshots(ctx context.Context, project dist.Project, targets []dist.Distribution, suffix string) error {
	for _, d := range targets {
		if err := s.createSnapshot(ctx, project, d, suffix); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSnapshots drops the suffix-named snapshot of every target
// distribution. Individual drop failures are absorbed; the returned
// outcomes record which drops actually removed something.
func (s *Service) DeleteSnapshots(ctx context.Context, project dist.Project, targets []dist.Distribution, suffix string) []DropOutcome {
	outcomes := make([]DropOutcome, 0, len(targets))
	for _, d := range targets {
		outcomes = append(outcomes, s.DropSnapshot(ctx, project, d, suffix))
	}
	return outcomes
}

// ListSnapshots writes the package contents of every target
// distribution's suffix-named snapshot to w.
func (s *Service) ListSnapshots(ctx context.Context, w io.Writer, project dist.Project, targets []dist.Distribution, suffix string) error {
	for _, d := range targets {
		name := SnapshotName(project, d, suffix)
		out, err := s.runner.Run(ctx, "snapshot", "show", "-with-packages", name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, out.Stdout); err != nil {
			return fmt.Errorf("write snapshot listing: %w", err)
		}
	}
	return nil
}

// DropSnapshot drops one suffix-named snapshot, absorbing any failure.
// -force allows dropping snapshots that are still published.
func (s *Service) DropSnapshot(ctx context.Context, project dist.Project, d dist.Distribution, suffix string) DropOutcome {
	name := SnapshotName(project, d, suffix)
	if _, err := s.runner.Run(ctx, "snapshot", "drop", "-force", name); err != nil {
		s.log.Debug("snapshot drop failed, ignoring", "snapshot", name, "err", err)
		return DropIgnoredFailure
	}
	s.log.Debug("snapshot dropped", "snapshot", name)
	return DropSucceeded
}

// openSource validates the artifact path and resolves it into a package
// source.
func (s *Service) openSource(path string) (*archive.PackageSource, error) {
	if err := s.checkExists(path); err != nil {
		return nil, err
	}
	return archive.Extract(path)
}

func (s *Service) checkExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &PackageFileError{Path: path}
		}
		return fmt.Errorf("stat package file %s: %w", path, err)
	}
	return nil
}

// addFile adds one .deb to every target distribution's repository.
func (s *Service) addFile(ctx context.Context, project dist.Project, targets []dist.Distribution, path string) error {
	for _, d := range targets {
		repo := RepoName(project, d)
		s.log.Info("adding package", "package", path, "repo", repo, "distribution", d.Alias)

		args := []string{"repo", "add"}
		if project.MultiArch() {
			args = append(args, s.archArg())
		}
		args = append(args, repo, path)
		if _, err := s.runner.Run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) removeVersion(ctx context.Context, project dist.Project, d dist.Distribution, version string) error {
	repo := RepoName(project, d)
	query := removeQuery(project, version)
	s.log.Info("removing packages", "query", query, "repo", repo)

	_, err := s.runner.Run(ctx, "repo", "remove", repo, query)
	return err
}

// refreshSnapshots runs the drop-then-create cycle for every target
// distribution, making repeated same-suffix ingestion idempotent: the old
// snapshot under that name is discarded and replaced.
func (s *Service) refreshSnapshots(ctx context.Context, project dist.Project, targets []dist.Distribution, suffix string) error {
	for _, d := range targets {
		s.DropSnapshot(ctx, project, d, suffix)
		if err := s.createSnapshot(ctx, project, d, suffix); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) createSnapshot(ctx context.Context, project dist.Project, d dist.Distribution, suffix string) error {
	repo := RepoName(project, d)
	name := SnapshotName(project, d, suffix)
	s.log.Info("creating snapshot", "snapshot", name, "repo", repo)

	_, err := s.runner.Run(ctx, "snapshot", "create", name, "from", "repo", repo)
	return err
}

// publicationExists checks aptly's publication listing for the given
// publish path and distribution.
func (s *Service) publicationExists(ctx context.Context, path, distribution string) (bool, error) {
	out, err := s.runner.Run(ctx, "publish", "list")
	if err != nil {
		return false, err
	}
	return strings.Contains(out.Stdout, path+"/"+distribution), nil
}

func (s *Service) gpgArg() string { return "-gpg-key=" + s.key }

func (s *Service) archArg() string { return "-architectures=" + strings.Join(s.archs, ",") }
