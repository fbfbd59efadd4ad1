// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/builder"
	"github.com/extforge/extforge/internal/bundler"
	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/internal/issue"
	"github.com/extforge/extforge/pkg/manifest"
)

func newBuildCommand(app *App, flags *globalFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle the extension into the output directory",
		Long: `Validate manifest.json and bundle every script it references.

The build runs twice: the first pass copies the project's static files into
the output directory while bundling, the second produces a clean bundle.
With --watch the second pass keeps rebuilding on changes until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runBuild(cmd.Context(), flags, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild on source changes")
	return cmd
}

func (a *App) runBuild(ctx context.Context, flags *globalFlags, watch bool) error {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		a.renderIssue(err)
		return err
	}
	logger := a.logger(cfg.UI.Verbose)

	raw, err := readManifest(flags.dir)
	if err != nil {
		a.renderIssue(err)
		return err
	}

	bnd, err := a.Bundlers(bundlerConfig(cfg, flags.dir, logger, a.exit))
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("configure bundler").
			WithSuggestion("Check build.target and build.out_dir in your configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	b := builder.New(raw,
		builder.WithValidator(manifest.NewValidator(manifestPath(flags.dir))),
		builder.WithInvoker(bnd),
		builder.WithLogger(logger),
		builder.WithOptions(bundler.Options{Watch: watch}),
	)
	if err := b.Build(ctx); err != nil {
		var be *builder.BuildError
		if errors.As(err, &be) {
			logger.Debug("build failed", "stage", be.Stage.String())
		}
		err = classifyBuildError(err)
		a.renderIssue(err)
		return err
	}

	fmt.Fprintln(a.stdout, SuccessStyle.Render("✓")+" built "+KeyStyle.Render(b.Manifest().Name)+" "+SubtitleStyle.Render(b.Manifest().Version))
	if !watch {
		return nil
	}

	fmt.Fprintln(a.stdout, SubtitleStyle.Render("watching for changes, press Ctrl+C to stop"))
	<-ctx.Done()
	bnd.Wait()
	return nil
}

func bundlerConfig(cfg *config.Config, dir string, logger *log.Logger, exit func(int)) bundler.Config {
	return bundler.Config{
		WorkDir:     dir,
		OutDir:      cfg.Build.OutDir,
		Minify:      cfg.Build.Minify,
		Sourcemap:   cfg.Build.Sourcemap,
		Target:      cfg.Build.Target,
		SyncIgnore:  cfg.Build.SyncIgnore,
		WatchIgnore: cfg.Watch.Ignore,
		Debounce:    cfg.Watch.Debounce,
		Logger:      logger,
		Exit:        exit,
	}
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifest.FileName)
}

// readManifest reads manifest.json from dir.
func readManifest(dir string) ([]byte, error) {
	raw, err := manifest.ReadFile(dir)
	if err == nil {
		return raw, nil
	}
	ec := issue.NewErrorContext().
		WithOperation("read manifest").
		WithResource(manifestPath(dir)).
		Wrap(err)
	if errors.Is(err, fs.ErrNotExist) {
		ec.WithSuggestion("Run extforge from the extension directory or pass --dir").
			WithIssue(issue.ManifestNotFoundId)
	}
	return nil, ec.BuildError()
}

// classifyBuildError attaches suggestions and an issue page to a failed
// build, keeping the original error in the chain.
func classifyBuildError(err error) error {
	ec := issue.NewErrorContext().WithOperation("build extension").Wrap(err)

	var fe *bundler.FatalError
	switch {
	case errors.Is(err, manifest.ErrInvalidManifest):
		ec.WithResource(manifest.FileName).
			WithSuggestion("Run 'extforge validate' to list every problem").
			WithIssue(issue.ManifestInvalidId)
	case errors.As(err, &fe) && errors.Is(err, fs.ErrNotExist):
		ec.WithResource(fe.Entry).
			WithSuggestion("Create the file or remove it from manifest.json").
			WithIssue(issue.EntryPointMissingId)
	case errors.Is(err, bundler.ErrCompilation):
		ec.WithIssue(issue.CompilationFailedId)
	case errors.Is(err, bundler.ErrBundlerFatal):
		ec.WithIssue(issue.BundlerFailedId)
	}
	return ec.BuildError()
}
