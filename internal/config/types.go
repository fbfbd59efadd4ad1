// SPDX-License-Identifier: MPL-2.0

package config

import "time"

const (
	// DefaultOutDir is where bundles and synced assets are written.
	DefaultOutDir = "dist"
	// DefaultDebounce is the quiet period before a watch rebuild.
	DefaultDebounce = 300 * time.Millisecond
)

type (
	// Config is the effective configuration.
	Config struct {
		Build BuildConfig `json:"build" mapstructure:"build"`
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		UI    UIConfig    `json:"ui" mapstructure:"ui"`

		// Sources lists the files merged into this configuration, lowest
		// precedence first.
		Sources []string `json:"-" mapstructure:"-"`
	}

	// BuildConfig controls bundling.
	BuildConfig struct {
		OutDir     string   `json:"out_dir" mapstructure:"out_dir"`
		Minify     bool     `json:"minify" mapstructure:"minify"`
		Sourcemap  bool     `json:"sourcemap" mapstructure:"sourcemap"`
		Target     string   `json:"target" mapstructure:"target"`
		SyncIgnore []string `json:"sync_ignore" mapstructure:"sync_ignore"`
	}

	// WatchConfig controls rebuild-on-change.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		Ignore   []string      `json:"ignore" mapstructure:"ignore"`
	}

	// UIConfig controls terminal output.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			OutDir:     DefaultOutDir,
			Target:     "esnext",
			SyncIgnore: []string{},
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{},
		},
	}
}
