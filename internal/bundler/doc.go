// SPDX-License-Identifier: MPL-2.0

// Package bundler turns script entry points into browser bundles.
//
// Invoker is the contract the build orchestrator depends on. ESBuild
// implements it with esbuild's Go API: one build context per entry point,
// written to <WorkDir>/<OutDir>/<base name>, optionally mirroring the
// project tree into the output directory and rebuilding on file changes.
package bundler
