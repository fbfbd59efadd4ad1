// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/builder"
	"github.com/extforge/extforge/internal/issue"
	"github.com/extforge/extforge/pkg/buildplan"
	"github.com/extforge/extforge/pkg/manifest"
)

func newValidateCommand(app *App, flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate manifest.json and show the build plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runValidate(cmd.Context(), flags, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the build plan as JSON")
	return cmd
}

func (a *App) runValidate(ctx context.Context, flags *globalFlags, asJSON bool) error {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		a.renderIssue(err)
		return err
	}

	raw, err := readManifest(flags.dir)
	if err != nil {
		a.renderIssue(err)
		return err
	}

	b := builder.New(raw,
		builder.WithValidator(manifest.NewValidator(manifestPath(flags.dir))),
		builder.WithLogger(a.logger(cfg.UI.Verbose)),
	)
	if err := b.Init(ctx); err != nil {
		err = issue.NewErrorContext().
			WithOperation("validate manifest").
			WithResource(manifestPath(flags.dir)).
			WithIssue(issue.ManifestInvalidId).
			Wrap(err).
			BuildError()
		a.renderIssue(err)
		return err
	}

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b.Plan())
	}
	renderPlan(a.stdout, b.Manifest(), b.Plan())
	return nil
}

func renderPlan(w io.Writer, m *manifest.Manifest, p *buildplan.Plan) {
	fmt.Fprintln(w, SuccessStyle.Render("✓")+" "+KeyStyle.Render(manifest.FileName)+" is valid")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(m.Name), SubtitleStyle.Render(m.Version))

	section := func(title string, items []string) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render(title))
		if len(items) == 0 {
			fmt.Fprintln(w, sectionStyle.Render(SubtitleStyle.Render("(none)")))
			return
		}
		fmt.Fprintln(w, sectionStyle.Render(strings.Join(items, "\n")))
	}

	section("Entry points", p.EntryPoints())
	section("Pages", p.Pages)

	icons := make([]string, 0, len(p.Assets.MainIcons)+len(p.Assets.ActionIcons))
	for _, icon := range append(append([]buildplan.Icon{}, p.Assets.MainIcons...), p.Assets.ActionIcons...) {
		if icon.Size == "" {
			icons = append(icons, icon.Path)
			continue
		}
		icons = append(icons, fmt.Sprintf("%s (%s)", icon.Path, icon.Size))
	}
	section("Icons", icons)
	section("Web accessible resources", p.Assets.WebAccessibleResources)
	section("Localizations", p.Assets.Localizations)
}
