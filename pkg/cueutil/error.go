// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrSchema is wrapped by every *SchemaError.
var ErrSchema = errors.New("schema violation")

type (
	// FieldError is one violation, located by a JSON-style path such as
	// "content_scripts[0].js". Path is empty for document-level problems
	// (syntax errors, for instance).
	FieldError struct {
		Path    string
		Message string
	}

	// SchemaError reports every violation found in one document.
	SchemaError struct {
		Filename string
		Fields   []FieldError
	}
)

// NewSchemaError converts a CUE error (possibly a list) into a *SchemaError.
// Errors that do not come from CUE become a single path-less FieldError.
func NewSchemaError(err error, filename string) *SchemaError {
	if err == nil {
		return nil
	}
	se := &SchemaError{Filename: filename}

	list := cueerrors.Errors(err)
	if len(list) == 0 {
		se.Fields = append(se.Fields, FieldError{Message: err.Error()})
		return se
	}

	seen := make(map[FieldError]struct{}, len(list))
	for _, e := range list {
		path := FormatPath(trimDefinition(cueerrors.Path(e)))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		fe := FieldError{Path: path, Message: msg}
		if _, dup := seen[fe]; dup {
			continue
		}
		seen[fe] = struct{}{}
		se.Fields = append(se.Fields, fe)
	}
	return se
}

// Error renders "<file>: <path>: <message>", one line per violation.
func (e *SchemaError) Error() string {
	lines := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		lines = append(lines, f.String())
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.Filename, lines[0])
	}
	return fmt.Sprintf("%s: %d schema violations:\n  %s", e.Filename, len(lines), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrSchema for errors.Is compatibility.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// Paths returns the distinct non-empty paths that failed, in report order.
func (e *SchemaError) Paths() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range e.Fields {
		if f.Path == "" {
			continue
		}
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = struct{}{}
		out = append(out, f.Path)
	}
	return out
}

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// FormatPath turns a CUE error path into JSON-path notation. Bare numeric
// elements are list indices ("js", "0" -> "js[0]"); quoted labels, which CUE
// uses for keys that are not identifiers such as icon sizes, become bracketed
// keys (`icons`, `"16"` -> `icons["16"]`).
func FormatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"':
			b.WriteString("[" + part + "]")
		default:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(part)
		}
	}
	return b.String()
}

// trimDefinition drops the schema definition label (e.g. "#Manifest") that
// prefixes paths of values looked up from a schema.
func trimDefinition(path []string) []string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return path
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckSize rejects documents larger than maxSize before they reach the
// CUE compiler.
func CheckSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
