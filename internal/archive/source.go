// SPDX-License-Identifier: MPL-2.0

package archive

import "os"

// PackageSource is the result of resolving a build artifact: the flat set
// of installable package files it contains.
//
// A source produced from a container archive exclusively owns the
// temporary directory its files were extracted into. Close releases that
// directory; callers must not touch Debs afterwards. Sources produced from
// a bare .deb own nothing and Close is a no-op, so callers can always
// defer it.
type PackageSource struct {
	// Debs are the paths of the installable package files, in walk order.
	// Never empty.
	Debs []string

	tempDir string
}

// FromArchive reports whether the source was extracted from a container
// archive rather than pointing at a single .deb file directly.
func (s *PackageSource) FromArchive() bool { return s.tempDir != "" }

// Close deletes the owned temporary directory, if any. It is safe to call
// more than once.
func (s *PackageSource) Close() error {
	if s.tempDir == "" {
		return nil
	}
	dir := s.tempDir
	s.tempDir = ""
	return os.RemoveAll(dir)
}
