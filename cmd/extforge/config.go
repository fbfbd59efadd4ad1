// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extforge/extforge/internal/config"
)

func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect extforge configuration",
		Long: `Inspect extforge configuration.

Configuration is merged from, lowest precedence first:
  - built-in defaults
  - <user config dir>/extforge/config.cue
  - <project>/extforge.cue
  - EXTFORGE_* environment variables (e.g. EXTFORGE_BUILD_MINIFY=true)

--config <file> replaces both files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd.Context(), flags)
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *globalFlags) error {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		a.renderIssue(err)
		return err
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(a.stdout)
	if len(cfg.Sources) == 0 {
		fmt.Fprintf(a.stdout, "%s: %s\n", KeyStyle.Render("Config files"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(a.stdout, "%s:\n", KeyStyle.Render("Config files"))
		for _, src := range cfg.Sources {
			fmt.Fprintln(a.stdout, sectionStyle.Render(src))
		}
	}
	fmt.Fprintln(a.stdout)
	fmt.Fprint(a.stdout, config.GenerateCUE(cfg))
	return nil
}
