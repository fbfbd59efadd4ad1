// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixtures and helpers shared by extforge tests.
//
// Helpers fail the test immediately when the filesystem misbehaves, so
// callers never check errors from fixture setup.
package testutil
