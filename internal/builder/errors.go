// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildInProgress is returned by Build and Init while another call
	// on the same Builder is running.
	ErrBuildInProgress = errors.New("build already in progress")

	// ErrUnknownOption is returned by SetOption for keys other than
	// "watch" and "syncDir".
	ErrUnknownOption = errors.New("unknown build option")

	// ErrNoInvoker is returned when Build reaches bundling without a
	// bundler.Invoker configured.
	ErrNoInvoker = errors.New("no bundler configured")
)

// BuildError records the stage that failed. Error returns the underlying
// message unchanged.
type BuildError struct {
	Stage State
	Err   error
}

func (e *BuildError) Error() string { return e.Err.Error() }

func (e *BuildError) Unwrap() error { return e.Err }

// Describe prefixes the message with the stage, for logs.
func (e *BuildError) Describe() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}
