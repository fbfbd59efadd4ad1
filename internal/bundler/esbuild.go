// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/extforge/extforge/internal/watch"
)

// DefaultOutDir is the output directory, relative to the project.
const DefaultOutDir = "dist"

var (
	targets = map[string]api.Target{
		"esnext": api.ESNext,
		"es2015": api.ES2015,
		"es2016": api.ES2016,
		"es2017": api.ES2017,
		"es2018": api.ES2018,
		"es2019": api.ES2019,
		"es2020": api.ES2020,
		"es2021": api.ES2021,
		"es2022": api.ES2022,
	}

	// Assets imported from scripts are emitted next to the bundle; HTML is
	// inlined as a string.
	loaders = map[string]api.Loader{
		".png":   api.LoaderFile,
		".jpg":   api.LoaderFile,
		".jpeg":  api.LoaderFile,
		".gif":   api.LoaderFile,
		".svg":   api.LoaderFile,
		".woff":  api.LoaderFile,
		".woff2": api.LoaderFile,
		".html":  api.LoaderText,
	}

	resolveExtensions = []string{".mjs", ".js", ".jsx", ".ts", ".tsx", ".css", ".json"}
)

type (
	// Config configures an ESBuild invoker.
	Config struct {
		// WorkDir is the project directory. Empty means the working directory.
		WorkDir string
		// OutDir is relative to WorkDir. Defaults to DefaultOutDir.
		OutDir string

		Minify    bool
		Sourcemap bool
		// Target is an ECMAScript version such as "es2020"; empty means esnext.
		Target string

		// SyncIgnore holds extra doublestar patterns left out of SyncDir copies.
		SyncIgnore []string
		// WatchIgnore holds extra doublestar patterns that never trigger a
		// rebuild.
		WatchIgnore []string
		// Debounce is the quiet period before a watch rebuild.
		Debounce time.Duration

		Logger *log.Logger
		// Exit terminates the process after compilation errors are logged.
		// Defaults to os.Exit.
		Exit func(code int)
	}

	// ESBuild is the esbuild-backed Invoker.
	ESBuild struct {
		workDir     string
		outDir      string
		minify      bool
		sourcemap   api.SourceMap
		target      api.Target
		syncIgnore  []string
		watchIgnore []string
		debounce    time.Duration
		logger      *log.Logger
		exit        func(int)

		watchers sync.WaitGroup
	}

	entryBuild struct {
		entry string
		bctx  api.BuildContext
	}
)

// NewESBuild validates cfg and returns an invoker.
func NewESBuild(cfg Config) (*ESBuild, error) {
	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("bundler: determine working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("bundler: resolve working directory: %w", err)
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = DefaultOutDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workDir, outDir)
	}

	target := api.ESNext
	if cfg.Target != "" {
		t, ok := targets[strings.ToLower(cfg.Target)]
		if !ok {
			return nil, fmt.Errorf("bundler: unsupported target %q", cfg.Target)
		}
		target = t
	}

	sourcemap := api.SourceMapNone
	if cfg.Sourcemap {
		sourcemap = api.SourceMapLinked
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	exit := cfg.Exit
	if exit == nil {
		exit = os.Exit
	}

	return &ESBuild{
		workDir:     workDir,
		outDir:      outDir,
		minify:      cfg.Minify,
		sourcemap:   sourcemap,
		target:      target,
		syncIgnore:  cfg.SyncIgnore,
		watchIgnore: cfg.WatchIgnore,
		debounce:    cfg.Debounce,
		logger:      logger,
		exit:        exit,
	}, nil
}

// OutDir returns the absolute output directory.
func (b *ESBuild) OutDir() string { return b.outDir }

// OutputPath returns where entry is written: the output directory joined
// with the entry's base name.
func (b *ESBuild) OutputPath(entry string) string {
	return filepath.Join(b.outDir, filepath.Base(entry))
}

// BuildScripts bundles every entry concurrently. With opts.SyncDir the
// project tree is copied into the output directory alongside. The first
// failure cancels the remaining work.
//
// When esbuild reports compilation errors they are logged, the Exit hook is
// called with status 0 and a *CompilationError is returned if Exit returns.
//
// With opts.Watch, BuildScripts returns once the initial build succeeded and
// keeps rebuilding in the background until ctx is cancelled; see Wait.
func (b *ESBuild) BuildScripts(ctx context.Context, entries []string, opts Options) error {
	for _, entry := range entries {
		if _, err := os.Stat(filepath.Join(b.workDir, entry)); err != nil {
			return fatal(entry, fmt.Errorf("entry point: %w", err))
		}
	}

	env, err := loadDotenv(b.workDir)
	if err != nil {
		return fatal("", err)
	}
	var define map[string]string
	if env != nil {
		value, err := processEnv(opts, env)
		if err != nil {
			return fatal("", fmt.Errorf("encode process.env: %w", err))
		}
		define = map[string]string{"process.env": value}
	}

	sy, err := newSyncer(b.workDir, b.outDir, b.syncIgnore)
	if err != nil {
		return fatal("", err)
	}

	builds := make([]*entryBuild, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	if opts.SyncDir {
		g.Go(func() error {
			n, err := sy.All(gctx)
			if err != nil {
				return fatal("", err)
			}
			b.logger.Debug("synced project files", "dir", b.outDir, "files", n)
			return nil
		})
	}
	for i, entry := range entries {
		g.Go(func() error {
			eb, err := b.newEntryBuild(entry, define)
			if err != nil {
				return err
			}
			builds[i] = eb
			return eb.run(gctx, b.logger)
		})
	}

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil || !opts.Watch {
		disposeAll(builds)
	}

	var compileErr *CompilationError
	switch {
	case errors.As(err, &compileErr):
		b.logger.Error("compilation failed", "entry", compileErr.Entry)
		for _, msg := range compileErr.Messages {
			b.logger.Error(msg)
		}
		b.exit(0)
		return err
	case err != nil:
		return err
	}

	if opts.Watch {
		return b.watch(ctx, builds, sy)
	}
	return nil
}

// Wait blocks until every background watcher started by BuildScripts has
// stopped.
func (b *ESBuild) Wait() {
	b.watchers.Wait()
}

func (b *ESBuild) newEntryBuild(entry string, define map[string]string) (*entryBuild, error) {
	bctx, ctxErr := api.Context(api.BuildOptions{
		EntryPoints:       []string{filepath.Join(b.workDir, entry)},
		Outfile:           b.OutputPath(entry),
		AbsWorkingDir:     b.workDir,
		Bundle:            true,
		Write:             true,
		Platform:          api.PlatformBrowser,
		Format:            api.FormatIIFE,
		Target:            b.target,
		MinifyWhitespace:  b.minify,
		MinifyIdentifiers: b.minify,
		MinifySyntax:      b.minify,
		Sourcemap:         b.sourcemap,
		Loader:            loaders,
		ResolveExtensions: resolveExtensions,
		Define:            define,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	})
	if ctxErr != nil {
		return nil, fatal(entry, errors.New(strings.Join(formatMessages(ctxErr.Errors, api.ErrorMessage), "\n")))
	}
	return &entryBuild{entry: entry, bctx: bctx}, nil
}

// run performs one build. Cancelling ctx cancels the esbuild build in
// flight.
func (eb *entryBuild) run(ctx context.Context, logger *log.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, eb.bctx.Cancel)
	result := eb.bctx.Rebuild()
	stop()
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, w := range formatMessages(result.Warnings, api.WarningMessage) {
		logger.Warn(w, "entry", eb.entry)
	}
	if len(result.Errors) > 0 {
		return &CompilationError{Entry: eb.entry, Messages: formatMessages(result.Errors, api.ErrorMessage)}
	}

	meta, err := ParseMetafile(result.Metafile)
	if err != nil {
		logger.Debug("unreadable metafile", "entry", eb.entry, "err", err)
		return nil
	}
	for _, out := range meta.Report() {
		logger.Info("bundled", "entry", eb.entry, "output", out.Path, "bytes", out.Bytes, "inputs", out.Inputs)
	}
	return nil
}

// watch rebuilds every entry after each batch of project changes. Changed
// files are copied into the output directory first so static assets stay
// current.
func (b *ESBuild) watch(ctx context.Context, builds []*entryBuild, sy *syncer) error {
	ignore := append([]string{}, b.watchIgnore...)
	if rel, err := filepath.Rel(b.workDir, b.outDir); err == nil && !strings.HasPrefix(rel, "..") {
		ignore = append(ignore, filepath.ToSlash(rel)+"/**")
	}

	w, err := watch.New(watch.Config{
		Dir:      b.workDir,
		Ignore:   ignore,
		Debounce: b.debounce,
		Logger:   b.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			b.logger.Info("change detected, rebuilding", "files", len(changed))
			if _, err := sy.Files(changed); err != nil {
				b.logger.Warn("sync changed files", "err", err)
			}
			var errs []error
			for _, eb := range builds {
				if err := eb.run(ctx, b.logger); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})
	if err != nil {
		disposeAll(builds)
		return fatal("", err)
	}

	b.logger.Info("watching for changes", "dir", b.workDir)
	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		defer disposeAll(builds)
		if err := w.Run(ctx); err != nil {
			b.logger.Error("watcher stopped", "err", err)
		}
	}()
	return nil
}

func disposeAll(builds []*entryBuild) {
	for _, eb := range builds {
		if eb != nil {
			eb.bctx.Dispose()
		}
	}
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	for i, m := range out {
		out[i] = strings.TrimRight(m, "\n")
	}
	return out
}
