// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxSize is the largest document Decode accepts (5 MiB).
const DefaultMaxSize int64 = 5 * 1024 * 1024

type (
	decodeOptions struct {
		maxSize  int64
		concrete bool
		filename string
	}

	// Option configures Decode.
	Option func(*decodeOptions)
)

func defaultOptions() decodeOptions {
	return decodeOptions{
		maxSize:  DefaultMaxSize,
		concrete: true,
		filename: "<input>",
	}
}

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(size int64) Option {
	return func(o *decodeOptions) {
		o.maxSize = size
	}
}

// WithConcrete controls whether every value must be concrete after
// unification. Configuration files, where most fields are optional and
// defaults come from elsewhere, pass false.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) {
		o.concrete = concrete
	}
}

// WithFilename sets the name reported in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) {
		if name != "" {
			o.filename = name
		}
	}
}
