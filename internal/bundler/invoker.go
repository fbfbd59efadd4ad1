// SPDX-License-Identifier: MPL-2.0

package bundler

import "context"

type (
	// Options is the per-pass option snapshot. Callers derive a fresh value
	// for every pass instead of mutating a shared one.
	Options struct {
		// Watch keeps rebuilding after the first successful build until the
		// context passed to BuildScripts is cancelled.
		Watch bool `json:"watch"`
		// SyncDir copies the project tree into the output directory.
		SyncDir bool `json:"syncDir"`
	}

	// Invoker bundles a set of entry points. Entries are paths relative to
	// the project directory, as they appear in the manifest.
	Invoker interface {
		BuildScripts(ctx context.Context, entries []string, opts Options) error
	}

	// InvokerFunc adapts a function to Invoker.
	InvokerFunc func(ctx context.Context, entries []string, opts Options) error
)

// BuildScripts calls f.
func (f InvokerFunc) BuildScripts(ctx context.Context, entries []string, opts Options) error {
	return f(ctx, entries, opts)
}
