// SPDX-License-Identifier: MPL-2.0

// Package watch ingests packages dropped into a directory inbox.
//
// The inbox root contains one subdirectory per project; files that appear
// in a subdirectory are imported into that project's repositories. Imports
// are strictly serialized: the event loop finishes one import before
// starting the next, so a burst of dropped files never produces concurrent
// repository mutations.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"packmule/internal/debfile"
	"packmule/internal/dist"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultSettle is the quiet period after the last event on a file before
// it is imported. Build uploads arrive as a create followed by a stream of
// writes; importing a file that is still being written would ingest a
// truncated package.
const defaultSettle = 500 * time.Millisecond

// defaultIgnores excludes the partial and temp files upload tools and
// editors leave next to real packages.
var defaultIgnores = []string{
	"*.partial",
	"*.part",
	"*.tmp",
	"*.swp",
	"*~",
	".#*",
	".DS_Store",
}

type (
	// ImportFunc ingests one package file into the project's repositories
	// for the given distributions.
	ImportFunc func(ctx context.Context, project dist.Project, targets []dist.Distribution, path string) error

	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the inbox directory. Its per-project subdirectories are
		// created on startup if missing. Required.
		Root string

		// Distributions are the target distributions for every import.
		// Each import uses the intersection of this set with the owning
		// project's supported distributions. Required, non-empty.
		Distributions []dist.Distribution

		// MaxImports bounds how many files are successfully imported before
		// Run returns. Failed or skipped files do not count toward the
		// bound. Zero performs the directory setup and returns without
		// watching; a negative value watches until the context is
		// cancelled.
		MaxImports int

		// Settle is the quiet period before an announced file is imported.
		// Zero or negative values fall back to defaultSettle.
		Settle time.Duration

		// Import performs the ingestion of one settled file. Required.
		Import ImportFunc

		// Ignore are additional glob patterns, matched against base names,
		// for files that must never be imported. Merged with the built-in
		// defaults.
		Ignore []string

		// Logger receives progress and per-file failures; nil uses
		// log.Default().
		Logger *log.Logger
	}

	// Watcher monitors the inbox and imports settled package files. Run
	// must be called exactly once.
	Watcher struct {
		cfg     Config
		fsw     *fsnotify.Watcher
		log     *log.Logger
		root    string
		settle  time.Duration
		ignores []string
		started atomic.Bool
	}
)

// ProjectForDirectory maps an inbox subdirectory name to its project. The
// subdirectories are named after the projects' identity prefixes.
func ProjectForDirectory(name string) (dist.Project, bool) {
	for _, p := range dist.Projects() {
		if p.NamePrefix() == name {
			return p, true
		}
	}
	return "", false
}

// InboxDirs returns the absolute per-project inbox subdirectories under
// root, in project order.
func InboxDirs(root string) []string {
	projects := dist.Projects()
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, filepath.Join(root, p.NamePrefix()))
	}
	return out
}

// New creates a Watcher over the given inbox root. The per-project
// subdirectories are created if missing and each is watched
// non-recursively.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("watch: inbox root is required")
	}
	if cfg.Import == nil {
		return nil, fmt.Errorf("watch: import callback is required")
	}
	if len(cfg.Distributions) == 0 {
		return nil, fmt.Errorf("watch: at least one target distribution is required")
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve inbox root: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = defaultSettle
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		log:     logger,
		root:    root,
		settle:  settle,
		ignores: ignores,
	}

	if err := w.setupInbox(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// setupInbox creates the per-project subdirectories and registers each
// with the fsnotify watcher. Watches are non-recursive on purpose: nested
// directories inside a project inbox are not part of the contract.
func (w *Watcher) setupInbox() error {
	for _, dir := range InboxDirs(w.root) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("watch: create inbox directory %q: %w", dir, err)
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: watch inbox directory %q: %w", dir, err)
		}
		w.log.Info("watching inbox directory", "dir", dir)
	}
	return nil
}

// Run blocks until ctx is cancelled, the import bound is reached, or a
// fatal watcher error occurs. Individual import failures are logged and do
// not stop the loop. Run must be called exactly once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.log.Error("close fsnotify watcher", "err", err)
		}
	}()

	if w.cfg.MaxImports == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		settled = make(chan string, 64)
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range pending {
			t.Stop()
		}
	}()

	announce := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok {
			t.Reset(w.settle)
			return
		}
		pending[path] = time.AfterFunc(w.settle, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			select {
			case settled <- path:
			case <-ctx.Done():
			}
		})
	}

	imported := 0
	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-settled:
			if w.importFile(ctx, path) {
				imported++
				if w.cfg.MaxImports > 0 && imported >= w.cfg.MaxImports {
					return nil
				}
			}

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			if !w.wantsFile(evt.Name) {
				continue
			}
			announce(evt.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover; see the
			// platform-specific classification in watcher_fatal_*.go.
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.log.Warn("fsnotify error", "err", err)
		}
	}
}

// wantsFile reports whether an event path names an importable package
// file: a .deb directly inside a project inbox, not matching any ignore
// pattern. Files that are rejected for a reason an operator would want to
// know about are logged.
func (w *Watcher) wantsFile(path string) bool {
	base := filepath.Base(path)
	for _, pat := range w.ignores {
		if ok, err := doublestar.Match(pat, base); err == nil && ok {
			return false
		}
	}
	if filepath.Ext(base) != debfile.Extension {
		w.log.Warn("ignoring non-package file", "file", path)
		return false
	}
	if _, ok := ProjectForDirectory(filepath.Base(filepath.Dir(path))); !ok {
		w.log.Warn("ignoring file in unrecognized inbox directory", "file", path)
		return false
	}
	return true
}

// importFile resolves the owning project and target distributions for a
// settled file and runs the import, reporting whether a package was
// actually imported. Failures and skips are logged; the watch loop keeps
// going, and only successful imports count toward the MaxImports bound.
func (w *Watcher) importFile(ctx context.Context, path string) bool {
	project, ok := ProjectForDirectory(filepath.Base(filepath.Dir(path)))
	if !ok {
		w.log.Warn("ignoring file in unrecognized inbox directory", "file", path)
		return false
	}

	// A settled file can already be gone again if the drop was retracted,
	// and a directory can carry a package-like name.
	info, err := os.Stat(path)
	if err != nil {
		w.log.Warn("settled file disappeared before import", "file", path)
		return false
	}
	if !info.Mode().IsRegular() {
		w.log.Warn("ignoring non-regular file", "file", path)
		return false
	}

	targets := dist.Intersect(w.cfg.Distributions, project.Supported())
	if len(targets) == 0 {
		w.log.Warn("no requested distribution is supported by project, skipping",
			"file", path, "project", project)
		return false
	}

	w.log.Info("importing package", "file", path, "project", project)
	if err := w.cfg.Import(ctx, project, targets, path); err != nil {
		w.log.Error("import failed", "file", path, "err", err)
		return false
	}
	w.log.Info("import complete", "file", path)
	return true
}
