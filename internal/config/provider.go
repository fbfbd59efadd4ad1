// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the user config directory when set.
	ConfigDirPath string
	// ProjectDir is searched for ProjectFileName. Empty means the working
	// directory.
	ProjectDir string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider backed by CUE files.
func NewProvider() Provider {
	return &fileProvider{}
}

func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}

// StaticProvider returns a fixed configuration. Commands use it in tests.
type StaticProvider struct {
	Config *Config
	Err    error
}

func (p StaticProvider) Load(context.Context, LoadOptions) (*Config, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Config == nil {
		return DefaultConfig(), nil
	}
	return p.Config, nil
}
