// SPDX-License-Identifier: MPL-2.0

// Package archive locates installable .deb packages inside build artifacts.
//
// An artifact is either a bare .deb file or a container archive (tar,
// gzipped tar, zip) holding .deb files, possibly with one further level of
// tar archives nested inside. Extraction is normalized: permissions,
// modification times, and extended attributes of archive entries are not
// preserved, and entries that could escape the extraction directory are
// skipped.
package archive

import "strings"

// Kind classifies an artifact by its filename suffix.
type Kind int

const (
	// KindInstallable is a bare .deb file. Filenames with no recognized
	// container suffix fall back to this kind: several build pipelines
	// emit package files without any suffix at all, and aptly validates
	// the file contents anyway.
	KindInstallable Kind = iota
	// KindTar is an uncompressed tar archive.
	KindTar
	// KindGzippedTar is a gzip-compressed tar archive (.tar.gz or .tgz).
	KindGzippedTar
	// KindZip is a zip archive.
	KindZip
)

// String returns a short name for the kind, for log output.
func (k Kind) String() string {
	switch k {
	case KindTar:
		return "tar"
	case KindGzippedTar:
		return "tar.gz"
	case KindZip:
		return "zip"
	default:
		return "deb"
	}
}

// Classify determines an artifact's kind from its filename. Matching is
// case-sensitive and longest-suffix-first, so ".tar.gz" wins over ".tar".
func Classify(name string) Kind {
	switch {
	case strings.HasSuffix(name, ".deb"):
		return KindInstallable
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return KindGzippedTar
	case strings.HasSuffix(name, ".tar"):
		return KindTar
	case strings.HasSuffix(name, ".zip"):
		return KindZip
	default:
		return KindInstallable
	}
}
