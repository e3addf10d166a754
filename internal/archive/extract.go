// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"packmule/internal/debfile"
)

// maxWalkDepth bounds the .deb collection walk to this many directory
// levels below the extraction root. Supported packaging pipelines nest at
// most archive-in-archive; anything deeper is treated as adversarial and
// simply not seen.
const maxWalkDepth = 2

var (
	// ErrNoPackages is the sentinel error wrapped by NoPackagesError.
	ErrNoPackages = errors.New("no installable packages found in archive")
	// ErrExtract is the sentinel error for decoder and unpacking failures.
	ErrExtract = errors.New("archive extraction failed")
)

// NoPackagesError is returned when a container archive holds no .deb files
// within the bounded walk depth.
type NoPackagesError struct {
	Path string
}

// Error implements the error interface.
func (e *NoPackagesError) Error() string {
	return fmt.Sprintf("no .deb files found in archive %s", e.Path)
}

// Unwrap returns ErrNoPackages so callers can use errors.Is for
// programmatic detection.
func (e *NoPackagesError) Unwrap() error { return ErrNoPackages }

// Extract resolves a build artifact into a PackageSource. Bare .deb files
// (and unrecognized suffixes, see Classify) are passed through untouched;
// container archives are unpacked into a fresh temporary directory owned
// by the returned source.
func Extract(path string) (*PackageSource, error) {
	kind := Classify(filepath.Base(path))
	if kind == KindInstallable {
		return &PackageSource{Debs: []string{path}}, nil
	}

	dest, err := os.MkdirTemp("", "packmule-extract-")
	if err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	src, err := extractInto(path, kind, dest)
	if err != nil {
		os.RemoveAll(dest)
		return nil, err
	}
	return src, nil
}

func extractInto(path string, kind Kind, dest string) (*PackageSource, error) {
	var err error
	switch kind {
	case KindTar:
		err = extractTarFile(path, dest, false)
	case KindGzippedTar:
		err = extractTarFile(path, dest, true)
	case KindZip:
		err = extractZip(path, dest)
	default:
		err = fmt.Errorf("%w: unsupported container kind %s", ErrExtract, kind)
	}
	if err != nil {
		return nil, err
	}

	// One pass of nested-archive resolution: archives produced by release
	// pipelines wrap at most one tar inside the outer container.
	if err := extractNestedTars(dest); err != nil {
		return nil, err
	}

	debs, err := findDebs(dest)
	if err != nil {
		return nil, err
	}
	if len(debs) == 0 {
		return nil, &NoPackagesError{Path: path}
	}

	return &PackageSource{Debs: debs, tempDir: dest}, nil
}

// extractTarFile unpacks a tar (optionally gzip-compressed) archive into
// dest with normalized metadata: directories and regular files only, fixed
// permissions, no mtimes, no xattrs. Entry names that would resolve
// outside dest are skipped.
func extractTarFile(path, dest string, gzipped bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtract, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtract, err)
		}

		out, ok := safeJoin(dest, hdr.Name)
		if !ok {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", out, err)
			}
		case tar.TypeReg:
			if err := writeEntry(out, tr); err != nil {
				return err
			}
		default:
			// Symlinks, hard links, and special files are dropped rather
			// than recreated; normalized extraction yields plain trees.
		}
	}
}

// extractZip unpacks a zip archive into dest. Entries whose names cannot
// be safely resolved under dest and symbolic link entries are silently
// skipped.
func extractZip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtract, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		out, ok := safeJoin(dest, entry.Name)
		if !ok {
			continue
		}
		if entry.Mode()&os.ModeSymlink != 0 {
			continue
		}

		if entry.Mode().IsDir() || strings.HasSuffix(entry.Name, "/") {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", out, err)
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtract, err)
		}
		err = writeEntry(out, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// extractNestedTars scans the immediate contents of dir (non-recursive)
// for tar archives, unpacks each into dir itself, and deletes the nested
// archive file. Nested zip archives are deliberately not resolved; no
// supported pipeline produces them.
func extractNestedTars(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s for nested archives: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		kind := Classify(entry.Name())
		if kind != KindTar && kind != KindGzippedTar {
			continue
		}

		nested := filepath.Join(dir, entry.Name())
		if err := extractTarFile(nested, dir, kind == KindGzippedTar); err != nil {
			return err
		}
		if err := os.Remove(nested); err != nil {
			return fmt.Errorf("remove nested archive %s: %w", nested, err)
		}
	}
	return nil
}

// findDebs walks root up to maxWalkDepth directory levels deep and
// collects every regular file with the installable package extension.
// Exceeding the bound is not an error; deeper files are invisible.
func findDebs(root string) ([]string, error) {
	type frame struct {
		dir   string
		depth int
	}

	var debs []string
	stack := []frame{{dir: root}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if fr.depth > maxWalkDepth {
			continue
		}

		entries, err := os.ReadDir(fr.dir)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", fr.dir, err)
		}
		for _, entry := range entries {
			path := filepath.Join(fr.dir, entry.Name())
			switch {
			case entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), debfile.Extension):
				debs = append(debs, path)
			case entry.IsDir():
				stack = append(stack, frame{dir: path, depth: fr.depth + 1})
			}
		}
	}
	return debs, nil
}

// safeJoin resolves an archive entry name under dest, reporting false for
// names that are absolute or would traverse outside dest.
func safeJoin(dest, name string) (string, bool) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return "", false
	}
	return filepath.Join(dest, name), true
}

// writeEntry creates the file at out (and any parent directories) with
// fixed permissions and copies the entry contents into it.
func writeEntry(out string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", filepath.Dir(out), err)
	}
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", out, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write file %s: %w", out, err)
	}
	return f.Close()
}
