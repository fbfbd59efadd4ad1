// SPDX-License-Identifier: MPL-2.0

// Package buildplan derives the script entry points, pages and static assets
// of an extension from its validated manifest.
//
// Every Set* method reads only the manifest, replaces only its own part of
// the Plan and returns what it stored, so extraction steps can be called one
// at a time or all together through Extract. Repeating a step yields the
// same result.
package buildplan
