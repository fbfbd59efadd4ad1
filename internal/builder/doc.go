// SPDX-License-Identifier: MPL-2.0

// Package builder runs the extension build: validate the manifest, derive
// the build plan, then bundle every script entry point in two passes.
//
// The first pass copies the project tree into the output directory; the
// second produces clean bundles and is the only pass that may watch. Each
// pass receives its own bundler.Options value derived from the Builder's
// option bag at the start of Build, so SetOption never affects a build in
// progress.
package builder
