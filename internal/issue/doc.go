// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the CLI.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for fixing it. An error may also point at a catalog Issue,
// a Markdown page rendered with glamour that explains the failure in depth.
package issue
