// SPDX-License-Identifier: MPL-2.0

package aptly

import (
	"fmt"
	"time"

	"packmule/internal/dist"
)

// SuffixLayout is the Go time layout of default snapshot suffixes, e.g.
// "26-Aug-26". Operators can pass an explicit suffix instead to tell
// multiple same-day batches apart.
const SuffixLayout = "02-Jan-06"

// RepoName derives the repository identity for a (project, distribution)
// pair. Identities are recomputed on demand and never persisted; aptly is
// the source of truth for whether they exist.
func RepoName(project dist.Project, d dist.Distribution) string {
	return fmt.Sprintf("repo-%s-%s", project.NamePrefix(), d.Alias)
}

// SnapshotName derives the snapshot identity for a (project, distribution,
// suffix) triple.
func SnapshotName(project dist.Project, d dist.Distribution, suffix string) string {
	return fmt.Sprintf("snap-%s-%s-%s", project.NamePrefix(), d.Alias, suffix)
}

// PublishPath derives the publication prefix for a (project, distribution)
// pair: {prefix}/{family}/{alias}.
func PublishPath(project dist.Project, d dist.Distribution) string {
	return fmt.Sprintf("%s/%s/%s", project.NamePrefix(), d.Family, d.Alias)
}

// DefaultSuffix formats the dated snapshot suffix for the given time.
func DefaultSuffix(now time.Time) string {
	return now.Format(SuffixLayout)
}

// removeQuery builds the aptly package query used to remove a version of a
// project's packages. The server ships exactly one package, matched by
// name and exact version; the other projects ship several packages per
// version, so they are matched by a name pattern instead.
func removeQuery(project dist.Project, version string) string {
	switch project {
	case dist.ProjectErlang:
		return fmt.Sprintf("Name (~ ^erlang), Version (= %s)", version)
	case dist.ProjectCliTools:
		return fmt.Sprintf("Name (~ ^rabbitmq), Version (= %s)", version)
	default:
		return fmt.Sprintf("rabbitmq-server (= %s)", version)
	}
}
