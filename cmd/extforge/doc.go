// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the extforge CLI commands.
package cmd
