// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/extforge/extforge/internal/issue"
	"github.com/extforge/extforge/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "extforge"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "EXTFORGE"
	// UserFileName is the config file inside the user config directory.
	UserFileName = "config.cue"
	// ProjectFileName is the config file inside a project.
	ProjectFileName = "extforge.cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the extforge directory under the platform's user
// configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("build.out_dir", defaults.Build.OutDir)
	v.SetDefault("build.minify", defaults.Build.Minify)
	v.SetDefault("build.sourcemap", defaults.Build.Sourcemap)
	v.SetDefault("build.target", defaults.Build.Target)
	v.SetDefault("build.sync_ignore", defaults.Build.SyncIgnore)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadWithOptions merges defaults, the user file and the project file, in
// that order. An explicit ConfigFilePath replaces both files.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()
	var sources []string

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'extforge config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %w", fs.ErrNotExist)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, loadError(opts.ConfigFilePath, err)
		}
		sources = append(sources, opts.ConfigFilePath)
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			dir, err := ConfigDir()
			// No user config directory (e.g. $HOME unset) only disables the
			// user file.
			if err == nil {
				cfgDir = dir
			}
		}

		candidates := []string{filepath.Join(opts.ProjectDir, ProjectFileName)}
		if cfgDir != "" {
			candidates = append([]string{filepath.Join(cfgDir, UserFileName)}, candidates...)
		}
		for _, path := range candidates {
			if !fileExists(path) {
				continue
			}
			if err := loadCUEIntoViper(v, path); err != nil {
				return nil, loadError(path, err)
			}
			sources = append(sources, path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse configuration").
			WithSuggestion("Check EXTFORGE_* environment variables for malformed values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	cfg.Sources = sources
	return &cfg, nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the values match the #Config schema").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// v, keeping defaults for fields the file leaves out.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.NewSchemaError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a CUE document accepted by #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// extforge configuration\n\n")

	sb.WriteString("build: {\n")
	fmt.Fprintf(&sb, "\tout_dir:   %q\n", cfg.Build.OutDir)
	fmt.Fprintf(&sb, "\tminify:    %v\n", cfg.Build.Minify)
	fmt.Fprintf(&sb, "\tsourcemap: %v\n", cfg.Build.Sourcemap)
	if cfg.Build.Target != "" {
		fmt.Fprintf(&sb, "\ttarget:    %q\n", cfg.Build.Target)
	}
	writeList(&sb, "sync_ignore", cfg.Build.SyncIgnore)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	writeList(&sb, "ignore", cfg.Watch.Ignore)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\t%s: [\n", key)
	for _, item := range items {
		fmt.Fprintf(sb, "\t\t%q,\n", item)
	}
	sb.WriteString("\t]\n")
}
