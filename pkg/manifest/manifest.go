// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// FileName is the manifest file read from the project directory.
const FileName = "manifest.json"

type (
	// Manifest is a validated extension manifest. Optional sections that are
	// absent in the source document are nil (pointers) or empty (slices and
	// maps); callers must tolerate both.
	Manifest struct {
		Name                   string                  `json:"name"`
		Description            string                  `json:"description"`
		ManifestVersion        int                     `json:"manifest_version"`
		Version                string                  `json:"version"`
		DefaultLocale          string                  `json:"default_locale,omitempty"`
		Permissions            []string                `json:"permissions,omitempty"`
		HostPermissions        []string                `json:"host_permissions,omitempty"`
		Background             *Background             `json:"background,omitempty"`
		Action                 *Action                 `json:"action,omitempty"`
		Icons                  IconSet                 `json:"icons,omitempty"`
		ContentScripts         []ContentScript         `json:"content_scripts,omitempty"`
		OptionsPage            string                  `json:"options_page,omitempty"`
		DevtoolsPage           string                  `json:"devtools_page,omitempty"`
		WebAccessibleResources []WebAccessibleResource `json:"web_accessible_resources,omitempty"`
		ChromeURLOverrides     *URLOverrides           `json:"chrome_url_overrides,omitempty"`
		ExternallyConnectable  *ExternallyConnectable  `json:"externally_connectable,omitempty"`
	}

	// Background declares the extension service worker.
	Background struct {
		ServiceWorker string `json:"service_worker,omitempty"`
	}

	// Action configures the toolbar button.
	Action struct {
		DefaultPopup string    `json:"default_popup,omitempty"`
		DefaultTitle string    `json:"default_title,omitempty"`
		DefaultIcon  *IconSpec `json:"default_icon,omitempty"`
	}

	// IconSet maps an icon size key ("16", "48", ...) to an image path.
	IconSet map[string]string

	// IconSpec is either a single image path or a size-keyed IconSet; the
	// manifest format accepts both for action.default_icon.
	IconSpec struct {
		Path  string
		Sizes IconSet
	}

	// ContentScript is one content_scripts block.
	ContentScript struct {
		Matches         []string `json:"matches"`
		JS              []string `json:"js"`
		CSS             []string `json:"css,omitempty"`
		MatchAboutBlank bool     `json:"match_about_blank,omitempty"`
		AllFrames       bool     `json:"all_frames,omitempty"`
		RunAt           string   `json:"run_at,omitempty"`
	}

	// WebAccessibleResource exposes resource globs to the listed origins.
	WebAccessibleResource struct {
		Resources []string `json:"resources,omitempty"`
		Matches   []string `json:"matches,omitempty"`
	}

	// URLOverrides replaces built-in browser pages.
	URLOverrides struct {
		History string `json:"history,omitempty"`
	}

	// ExternallyConnectable lists origins allowed to message the extension.
	ExternallyConnectable struct {
		Matches []string `json:"matches,omitempty"`
	}
)

// PopupPage returns action.default_popup, or "" when absent.
func (m *Manifest) PopupPage() string {
	if m == nil || m.Action == nil {
		return ""
	}
	return m.Action.DefaultPopup
}

// HistoryPage returns chrome_url_overrides.history, or "" when absent.
func (m *Manifest) HistoryPage() string {
	if m == nil || m.ChromeURLOverrides == nil {
		return ""
	}
	return m.ChromeURLOverrides.History
}

// ServiceWorker returns background.service_worker, or "" when absent.
func (m *Manifest) ServiceWorker() string {
	if m == nil || m.Background == nil {
		return ""
	}
	return m.Background.ServiceWorker
}

// SortedSizes returns the size keys in ascending numeric order. Keys that
// are not numbers sort after the numeric ones, lexically.
func (s IconSet) SortedSizes() []string {
	keys := slices.Collect(maps.Keys(s))
	slices.SortFunc(keys, func(a, b string) int {
		ai, aErr := strconv.Atoi(a)
		bi, bErr := strconv.Atoi(b)
		switch {
		case aErr == nil && bErr == nil:
			return ai - bi
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return keys
}

// IsSingle reports whether the icon was given as a bare path.
func (s *IconSpec) IsSingle() bool {
	return s != nil && s.Sizes == nil
}

// UnmarshalJSON accepts a JSON string or an object of size -> path.
func (s *IconSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var path string
		if err := json.Unmarshal(trimmed, &path); err != nil {
			return err
		}
		*s = IconSpec{Path: path}
		return nil
	}
	var sizes IconSet
	if err := json.Unmarshal(trimmed, &sizes); err != nil {
		return fmt.Errorf("default_icon must be a path or an object of size to path: %w", err)
	}
	if sizes == nil {
		sizes = IconSet{}
	}
	*s = IconSpec{Sizes: sizes}
	return nil
}

// MarshalJSON writes the form the icon was read from.
func (s IconSpec) MarshalJSON() ([]byte, error) {
	if s.Sizes == nil {
		return json.Marshal(s.Path)
	}
	return json.Marshal(s.Sizes)
}
