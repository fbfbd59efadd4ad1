// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ScenarioManifest is a manifest with one script of every kind: a content
// script, a service worker, a popup page and an options page. Its entry
// points are content.js, background.js, popup.js and options.js, in that
// order.
const ScenarioManifest = `{
  "name": "Demo",
  "description": "Demo extension",
  "manifest_version": 3,
  "version": "1.0.0",
  "background": {"service_worker": "background.js"},
  "action": {"default_popup": "popup.html"},
  "content_scripts": [{"matches": ["<all_urls>"], "js": ["content.js"]}],
  "options_page": "options.html"
}`

// ScenarioEntryPoints are the entry points of ScenarioManifest.
func ScenarioEntryPoints() []string {
	return []string{"content.js", "background.js", "popup.js", "options.js"}
}

// MustWriteFile writes data to path, creating parent directories.
func MustWriteFile(t testing.TB, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WriteTree creates a temporary directory holding files, keyed by
// slash-separated relative path, and returns its path.
func WriteTree(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}
