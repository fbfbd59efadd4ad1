// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/extforge/extforge/pkg/cueutil"
)

var (
	// ErrInvalidManifest is wrapped by every *ValidationError.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrInvalidBumpType is returned by BumpVersion for anything other than
	// patch, minor or major.
	ErrInvalidBumpType = errors.New(`invalid version type, specify "patch", "minor", or "major"`)

	// ErrInvalidVersion is returned by BumpVersion when the current version
	// cannot be incremented into a valid major.minor.patch version.
	ErrInvalidVersion = errors.New("invalid version format, use major.minor.patch")
)

// ValidationError lists every schema violation found in a manifest.
type ValidationError struct {
	Filename string
	Fields   []cueutil.FieldError
}

func newValidationError(err error, filename string, raw []byte) error {
	var se *cueutil.SchemaError
	if errors.As(err, &se) {
		return &ValidationError{Filename: se.Filename, Fields: collapsePermissions(se.Fields, raw)}
	}
	return &ValidationError{Filename: filename, Fields: []cueutil.FieldError{{Message: err.Error()}}}
}

// collapsePermissions replaces the one-per-alternative errors CUE reports for
// a permission outside the allow-list with a single line naming the value.
func collapsePermissions(fields []cueutil.FieldError, raw []byte) []cueutil.FieldError {
	var doc struct {
		Permissions []json.RawMessage `json:"permissions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || len(doc.Permissions) == 0 {
		return fields
	}

	out := make([]cueutil.FieldError, 0, len(fields))
	collapsed := make(map[string]bool)
	for _, f := range fields {
		i, ok := permissionIndex(f.Path)
		if !ok || i >= len(doc.Permissions) {
			out = append(out, f)
			continue
		}
		if collapsed[f.Path] {
			continue
		}
		var perm string
		msg := "permission must be a string"
		if json.Unmarshal(doc.Permissions[i], &perm) == nil {
			if IsAllowedPermission(perm) {
				out = append(out, f)
				continue
			}
			msg = fmt.Sprintf("permission %q is not allowed", perm)
		}
		collapsed[f.Path] = true
		out = append(out, cueutil.FieldError{Path: f.Path, Message: msg})
	}
	return out
}

// permissionIndex parses "permissions[N]".
func permissionIndex(path string) (int, bool) {
	rest, ok := strings.CutPrefix(path, "permissions[")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	return i, err == nil
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return fmt.Sprintf("%s: invalid manifest", e.Filename)
	case 1:
		return fmt.Sprintf("%s: invalid manifest: %s", e.Filename, e.Fields[0])
	}
	lines := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		lines = append(lines, f.String())
	}
	return fmt.Sprintf("%s: invalid manifest:\n  %s", e.Filename, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidManifest for errors.Is compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalidManifest }

// HasPath reports whether any violation is located at path or below it.
func (e *ValidationError) HasPath(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path || strings.HasPrefix(f.Path, path+".") || strings.HasPrefix(f.Path, path+"[") {
			return true
		}
	}
	return false
}
