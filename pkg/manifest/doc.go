// SPDX-License-Identifier: MPL-2.0

// Package manifest loads and validates browser extension manifests.
//
// Validation unifies the manifest JSON with the embedded CUE schema
// (manifest_schema.cue) and decodes it into Manifest. A manifest that is
// missing name, description, manifest_version or version, that has a field
// of the wrong shape, or that requests a permission outside the allow-list
// is rejected with a *ValidationError before anything else reads it.
//
// The package also owns the in-place version bump used by the CLI
// (BumpVersion).
package manifest
