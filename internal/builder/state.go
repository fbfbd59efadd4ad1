// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"errors"
	"fmt"
)

const (
	// StateCreated means no build has run yet.
	StateCreated State = iota
	// StateValidating means the manifest is being checked.
	StateValidating
	// StateExtracting means the build plan is being derived.
	StateExtracting
	// StateReady means Init finished; no bundling has started.
	StateReady
	// StateSyncing is the first bundler pass, which also syncs the project.
	StateSyncing
	// StateBundling is the second, clean bundler pass.
	StateBundling
	// StateDone is terminal for a build: both passes succeeded.
	StateDone
	// StateFailed is terminal for a build: a stage returned an error.
	StateFailed
)

// ErrInvalidState is returned when a State value is not a defined state.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is the position of a Builder in the build pipeline.
	State int32

	// InvalidStateError wraps ErrInvalidState.
	InvalidStateError struct {
		Value State
	}
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateValidating:
		return "validating"
	case StateExtracting:
		return "extracting"
	case StateReady:
		return "ready"
	case StateSyncing:
		return "bundling (sync pass)"
	case StateBundling:
		return "bundling (clean pass)"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid builder state %d", e.Value)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// Validate returns an *InvalidStateError for undefined values.
func (s State) Validate() error {
	if s < StateCreated || s > StateFailed {
		return &InvalidStateError{Value: s}
	}
	return nil
}

// IsTerminal reports whether a build has finished, successfully or not.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
