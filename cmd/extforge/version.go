// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/issue"
	"github.com/extforge/extforge/pkg/manifest"
)

func newVersionCommand(app *App, flags *globalFlags) *cobra.Command {
	types := make([]string, 0, len(manifest.BumpTypes))
	for _, t := range manifest.BumpTypes {
		types = append(types, string(t))
	}

	return &cobra.Command{
		Use:       "version <" + strings.Join(types, "|") + ">",
		Short:     "Bump the version in manifest.json",
		Long:      "Increment the major, minor or patch component of the manifest version in place.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: types,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runVersion(cmd, flags, args[0])
		},
	}
}

func (a *App) runVersion(cmd *cobra.Command, flags *globalFlags, arg string) error {
	bump, err := manifest.ParseBumpType(arg)
	if err != nil {
		return a.usageError(cmd, issue.NewErrorContext().
			WithOperation("bump version").
			WithSuggestion("Use one of: patch, minor, major").
			WithIssue(issue.InvalidBumpTypeId).
			Wrap(err).
			BuildError(), flags.verbose)
	}

	next, err := manifest.BumpFile(flags.dir, bump)
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("bump version").
			WithResource(manifestPath(flags.dir)).
			Wrap(err)
		if errors.Is(err, manifest.ErrInvalidVersion) {
			ec.WithSuggestion("Set version to major.minor.patch, e.g. 1.0.0").
				WithIssue(issue.InvalidVersionId)
		}
		return a.usageError(cmd, ec.BuildError(), flags.verbose)
	}

	fmt.Fprintf(a.stdout, "%s version %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(next))
	return nil
}

// usageError writes err to stderr itself and returns an ExitError with
// status 1.
func (a *App) usageError(cmd *cobra.Command, err error, verbose bool) error {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	a.renderIssue(err)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: 1, Err: err}
}
