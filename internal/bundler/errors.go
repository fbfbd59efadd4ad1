// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBundlerFatal is wrapped by every *FatalError.
	ErrBundlerFatal = errors.New("bundler failed")

	// ErrCompilation is wrapped by every *CompilationError.
	ErrCompilation = errors.New("compilation failed")
)

type (
	// FatalError means the bundler could not run at all: a missing entry
	// file, an unusable build context, a failed directory sync.
	FatalError struct {
		Entry string
		Err   error
	}

	// CompilationError means esbuild ran and reported errors in the sources.
	CompilationError struct {
		Entry    string
		Messages []string
	}
)

func (e *FatalError) Error() string {
	if e.Entry == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

// Unwrap returns both ErrBundlerFatal and the underlying cause.
func (e *FatalError) Unwrap() []error { return []error{ErrBundlerFatal, e.Err} }

func (e *CompilationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: %v", e.Entry, ErrCompilation)
	}
	return fmt.Sprintf("%s: %v:\n%s", e.Entry, ErrCompilation, strings.Join(e.Messages, "\n"))
}

func (e *CompilationError) Unwrap() error { return ErrCompilation }

func fatal(entry string, err error) *FatalError {
	return &FatalError{Entry: entry, Err: err}
}
