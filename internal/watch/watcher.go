// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when watched workspace files change.
//
// It monitors files below a base directory that match glob patterns and
// invokes a callback after a debounce period. Events within the debounce
// window are coalesced, and a file only counts as changed when its content
// digest differs from the last one seen, so a callback that rewrites the
// files it watches with identical bytes does not trigger itself again.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period used when Config.Debounce is not set.
const defaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are always excluded: VCS metadata, Cargo build output,
// editor swap files and OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/target/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar glob patterns (e.g. "**/Cargo.toml") selecting
		// the files that trigger callbacks. Empty watches every non-ignored file.
		Patterns []string

		// Ignore are extra doublestar patterns merged with the defaults.
		Ignore []string

		// Debounce is the quiet period after the last event before the callback
		// fires. Zero or negative selects defaultDebounce.
		Debounce time.Duration

		// BaseDir is the directory watched recursively; empty means the current
		// working directory.
		BaseDir string

		// OnChange receives the sorted slash-separated paths, relative to
		// BaseDir, whose content changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives diagnostics; nil discards them.
		Logger *log.Logger
	}

	// Watcher monitors a directory tree and fires a debounced callback when
	// matching files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool

		// digests maps relative paths to their last seen content digest. It is
		// written by New and afterwards only from fire, which never runs
		// concurrently with itself.
		digests map[string]string
	}
)

// New creates a Watcher, registers every non-ignored directory below BaseDir,
// and records the current digest of every matching file.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  ignores,
		logger:   logger,
		debounce: debounce,
		baseDir:  absBase,
		digests:  make(map[string]string),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after cancellation because it is scheduled by
	// time.AfterFunc; the callback still receives ctx.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		candidates := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		changed := w.contentChanged(candidates)
		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		w.logger.Info("manifests changed", "paths", changed)
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("re-run failed", "err", err)
		}
		// The callback may itself have rewritten watched files.
		w.refreshDigests()
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("close fsnotify", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			rel := w.rel(evt.Name)
			if w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.matchesPatterns(rel) {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// contentChanged returns the candidates whose digest differs from the last
// recorded one and records the new digests. A deleted file has digest "".
func (w *Watcher) contentChanged(candidates []string) []string {
	var changed []string
	for _, rel := range candidates {
		sum := digestFile(w.abs(rel))
		if prev, ok := w.digests[rel]; ok && prev == sum {
			continue
		}
		if sum == "" {
			if _, known := w.digests[rel]; !known {
				continue
			}
			delete(w.digests, rel)
		} else {
			w.digests[rel] = sum
		}
		changed = append(changed, rel)
	}
	return changed
}

// refreshDigests re-records the digest of every known path.
func (w *Watcher) refreshDigests() {
	for rel := range w.digests {
		if sum := digestFile(w.abs(rel)); sum != "" {
			w.digests[rel] = sum
		} else {
			delete(w.digests, rel)
		}
	}
}

// addDirectories registers every non-ignored directory below baseDir and
// records the digest of every matching file.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d fs.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // inaccessible paths are skipped, not fatal
		}

		rel := w.rel(path)
		if !d.IsDir() {
			if !w.isIgnored(rel) && w.matchesPatterns(rel) {
				if sum := digestFile(path); sum != "" {
					w.digests[rel] = sum
				}
			}
			return nil
		}
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir watches path if it is a new, non-ignored directory.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel := w.rel(path)
	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("add new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) abs(rel string) string {
	return filepath.Join(w.baseDir, filepath.FromSlash(rel))
}

// isIgnored reports whether the slash-separated rel matches an ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matchesPatterns reports whether rel matches a watch pattern. Without
// patterns everything matches.
func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// validatePatterns rejects malformed doublestar globs; label names the
// pattern list in the error.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
