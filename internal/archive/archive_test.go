// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Kind
	}{
		{"rabbitmq-server_4.1.3-1_all.deb", KindInstallable},
		{"bundle.tar", KindTar},
		{"bundle.tar.gz", KindGzippedTar},
		{"bundle.tgz", KindGzippedTar},
		{"bundle.zip", KindZip},
		{"bundle.TAR", KindInstallable},
		{"no-suffix-at-all", KindInstallable},
		{"bundle.tar.gz.zip", KindZip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestExtractPassesThroughBareDeb(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "rabbitmq-server_4.1.3-1_all.deb")
	writeFile(t, path, "not really a deb")

	src, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	defer src.Close()

	if src.FromArchive() {
		t.Error("bare .deb should not be marked as extracted from an archive")
	}
	if len(src.Debs) != 1 || src.Debs[0] != path {
		t.Errorf("Debs = %v, want [%s]", src.Debs, path)
	}
}

func TestExtractEmptyArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	emptyTar := filepath.Join(dir, "empty.tar")
	writeTar(t, emptyTar, false, nil)

	emptyZip := filepath.Join(dir, "empty.zip")
	writeZip(t, emptyZip, nil)

	for _, path := range []string{emptyTar, emptyZip} {
		if _, err := Extract(path); !errors.Is(err, ErrNoPackages) {
			t.Errorf("Extract(%s) error = %v, want ErrNoPackages", filepath.Base(path), err)
		}
	}
}

func TestExtractTarFindsDebs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "packages.tar.gz")
	writeTar(t, path, true, []tarEntry{
		{name: "erlang-base_1:27.3-1_amd64.deb", body: "a"},
		{name: "pool/erlang-base_1:27.3-1_arm64.deb", body: "b"},
		{name: "README.md", body: "docs"},
	})

	src, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	defer src.Close()

	if !src.FromArchive() {
		t.Error("tar source should be marked as extracted")
	}
	if got := baseNames(src.Debs); len(got) != 2 {
		t.Errorf("found %d debs %v, want 2", len(got), got)
	}
}

func TestExtractDepthBound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "deep.tar")
	writeTar(t, path, false, []tarEntry{
		{name: "a/b/c/rabbitmq-server_4.1.3-1_all.deb", body: "x"},
	})

	if _, err := Extract(path); !errors.Is(err, ErrNoPackages) {
		t.Errorf("deb three directories deep should be invisible, got error %v", err)
	}

	shallow := filepath.Join(dir, "shallow.tar")
	writeTar(t, shallow, false, []tarEntry{
		{name: "a/b/rabbitmq-server_4.1.3-1_all.deb", body: "x"},
	})

	src, err := Extract(shallow)
	if err != nil {
		t.Fatalf("deb two directories deep should be found, got error %v", err)
	}
	src.Close()
}

func TestExtractZipSkipsSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "links.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: "linked_1.0_all.deb"}
	hdr.SetMode(os.ModeSymlink | 0o777)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("/etc/passwd")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, buf.String())

	if _, err := Extract(path); !errors.Is(err, ErrNoPackages) {
		t.Errorf("zip with only a symlinked deb should yield ErrNoPackages, got %v", err)
	}
}

func TestExtractZipSkipsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "evil.zip")
	writeZip(t, path, []tarEntry{
		{name: "../escape_1.0_all.deb", body: "evil"},
		{name: "safe_1.0_all.deb", body: "fine"},
	})

	src, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	defer src.Close()

	if got := baseNames(src.Debs); len(got) != 1 || got[0] != "safe_1.0_all.deb" {
		t.Errorf("Debs = %v, want only the safe entry", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape_1.0_all.deb")); err == nil {
		t.Error("traversal entry was written outside the extraction directory")
	}
}

func TestExtractNestedTarInZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var inner bytes.Buffer
	gz := gzip.NewWriter(&inner)
	tw := tar.NewWriter(gz)
	for _, name := range []string{"pkg_1.0_amd64.deb", "pkg_1.0_arm64.deb"} {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "release.zip")
	writeZip(t, path, []tarEntry{
		{name: "packages.tar.gz", body: inner.String()},
	})

	src, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	defer src.Close()

	got := baseNames(src.Debs)
	sort.Strings(got)
	want := []string{"pkg_1.0_amd64.deb", "pkg_1.0_arm64.deb"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Debs = %v, want %v", got, want)
	}

	// The nested container must have been consumed, not left behind as a
	// stray file in the extraction directory.
	for _, d := range src.Debs {
		if filepath.Base(d) == "packages.tar.gz" {
			t.Error("nested archive survived extraction")
		}
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.tar.gz")
	writeFile(t, path, "this is not gzip data")

	if _, err := Extract(path); !errors.Is(err, ErrExtract) {
		t.Errorf("Extract(corrupt) error = %v, want ErrExtract", err)
	}
}

func TestPackageSourceClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "one.tar")
	writeTar(t, path, false, []tarEntry{
		{name: "pkg_1.0_all.deb", body: "x"},
	})

	src, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	extracted := src.Debs[0]
	if _, err := os.Stat(extracted); err != nil {
		t.Fatalf("extracted file missing before Close: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(extracted); !os.IsNotExist(err) {
		t.Error("extracted file should be gone after Close")
	}
	// Second Close is a no-op.
	if err := src.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

type tarEntry struct {
	name string
	body string
}

func writeTar(t *testing.T, path string, gzipped bool, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	var tw *tar.Writer
	var gz *gzip.Writer
	if gzipped {
		gz = gzip.NewWriter(&buf)
		tw = tar.NewWriter(gz)
	} else {
		tw = tar.NewWriter(&buf)
	}

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0o644,
			Size:     int64(len(e.body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, path, buf.String())
}

func writeZip(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, buf.String())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
