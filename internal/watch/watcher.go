// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
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

// DefaultDebounce matches the aggregation window extension authors expect
// from webpack-style watchers.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// Paths under these patterns never trigger a batch.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// ChangeFunc receives the changed paths, relative to Config.Dir and
	// slash-separated.
	ChangeFunc func(ctx context.Context, changed []string) error

	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the project root. Empty means the working directory.
		Dir string

		// Ignore holds doublestar patterns, relative to Dir, added to the
		// built-in ignores. The bundler passes its output directory here.
		Ignore []string

		// Debounce is the quiet period before OnChange fires. Zero or
		// negative values use DefaultDebounce.
		Debounce time.Duration

		// Logger receives callback failures and recoverable fsnotify errors.
		// Nil discards them.
		Logger *log.Logger

		OnChange ChangeFunc
	}

	// Watcher monitors a project tree. Run must be called exactly once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		dir      string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		onChange ChangeFunc
		started  atomic.Bool
	}
)

// New validates cfg and registers the directory tree with fsnotify.
func New(cfg Config) (*Watcher, error) {
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		dir:      abs,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		logger:   logger,
		onChange: cfg.OnChange,
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute directory being watched.
func (w *Watcher) Dir() string { return w.dir }

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when fsnotify can no longer deliver events.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
	)

	// flush runs on the timer goroutine. A batch that arrives while the
	// previous callback is still running is retried after another debounce
	// period rather than run concurrently.
	flush := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			mu.Lock()
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.onChange == nil {
			return
		}
		if err := w.onChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "err", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, ok := w.relative(evt.Name)
			if !ok || w.Ignored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.addCreated(evt.Name, rel)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, flush)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if resourceExhausted(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// Ignored reports whether rel (relative to Dir) matches an ignore pattern.
func (w *Watcher) Ignored(rel string) bool {
	return matchAny(w.ignores, filepath.ToSlash(rel))
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addTree registers root and every non-ignored directory below it.
// Unreadable directories are skipped with a warning.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "." && w.dirIgnored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) addCreated(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.dirIgnored(rel) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watch new directory", "path", rel, "err", err)
	}
}

// dirIgnored also matches the directory itself against "dir/**" patterns.
func (w *Watcher) dirIgnored(rel string) bool {
	return w.Ignored(rel) || w.Ignored(rel+"/")
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
