// SPDX-License-Identifier: MPL-2.0

// Package watch reports debounced batches of changed project files.
//
// A Watcher registers every non-ignored directory below Config.Dir with
// fsnotify, adds directories created later, and calls Config.OnChange once
// per quiet period with the sorted, deduplicated paths that changed. The
// bundler uses it to rebuild entry points and re-sync assets in watch mode.
package watch
