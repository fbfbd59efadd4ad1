// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "extforge",
		Short: "Build browser extensions from their manifest",
		Long: TitleStyle.Render("extforge") + SubtitleStyle.Render(" - build browser extensions from their manifest") + `

extforge validates manifest.json, derives the scripts to bundle from it and
bundles each of them with esbuild into dist/, next to a copy of the
extension's static files.

` + SubtitleStyle.Render("Examples:") + `
  extforge build             Bundle the extension in the current directory
  extforge build --watch     Rebuild on every change
  extforge validate          Check manifest.json and show the build plan
  extforge version patch     Bump the manifest version
  extforge config show       Show the effective configuration`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: <dir>/extforge.cue and the user config)")
	root.PersistentFlags().StringVar(&flags.dir, "dir", "", "extension project directory (default: current directory)")

	root.AddCommand(
		newBuildCommand(app, flags),
		newValidateCommand(app, flags),
		newVersionCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
