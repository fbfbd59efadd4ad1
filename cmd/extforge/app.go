// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/extforge/extforge/internal/bundler"
	"github.com/extforge/extforge/internal/config"
	"github.com/extforge/extforge/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives it and reaches the filesystem, config and bundler through it.
	App struct {
		Config   ConfigProvider
		Bundlers BundlerFactory
		stdout   io.Writer
		stderr   io.Writer
		exit     func(int)
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config   ConfigProvider
		Bundlers BundlerFactory
		Stdout   io.Writer
		Stderr   io.Writer
		// Exit is called by the bundler after compilation errors.
		Exit func(int)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// Bundler is an Invoker whose watch-mode goroutines can be awaited.
	Bundler interface {
		bundler.Invoker
		Wait()
	}

	// BundlerFactory builds the bundler for one command run.
	BundlerFactory func(cfg bundler.Config) (Bundler, error)

	// globalFlags are the persistent root flags.
	globalFlags struct {
		verbose    bool
		configPath string
		dir        string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Bundlers == nil {
		deps.Bundlers = newESBuild
	}
	if deps.Exit == nil {
		deps.Exit = os.Exit
	}
	return &App{
		Config:   deps.Config,
		Bundlers: deps.Bundlers,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
		exit:     deps.Exit,
	}
}

func newESBuild(cfg bundler.Config) (Bundler, error) {
	return bundler.NewESBuild(cfg)
}

// loadConfig loads configuration for the project selected by flags. The
// --verbose flag wins over ui.verbose only when set.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ProjectDir:     flags.dir,
	})
	if err != nil {
		return nil, err
	}
	if flags.verbose && !cfg.UI.Verbose {
		c := *cfg
		c.UI.Verbose = true
		return &c, nil
	}
	return cfg, nil
}

// logger returns the structured logger for command output on stderr.
func (a *App) logger(verbose bool) *log.Logger {
	l := log.NewWithOptions(a.stderr, log.Options{
		ReportTimestamp: verbose,
		Prefix:          "extforge",
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// renderIssue prints the catalog page linked to err, if any.
func (a *App) renderIssue(err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	page := ae.Issue()
	if page == nil {
		return
	}
	rendered, rerr := page.Render("auto")
	if rerr != nil {
		return
	}
	_, _ = io.WriteString(a.stderr, rendered)
}

// formatErrorForDisplay uses ActionableError formatting when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
