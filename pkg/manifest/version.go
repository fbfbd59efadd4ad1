// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BumpType selects which version component BumpVersion increments.
type BumpType string

const (
	BumpPatch BumpType = "patch"
	BumpMinor BumpType = "minor"
	BumpMajor BumpType = "major"
)

// BumpTypes lists the accepted bump types in display order.
var BumpTypes = []BumpType{BumpPatch, BumpMinor, BumpMajor}

type member struct {
	key   string
	value json.RawMessage
}

// ParseBumpType validates s as a BumpType.
func ParseBumpType(s string) (BumpType, error) {
	for _, t := range BumpTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBumpType, s)
}

// NextVersion increments current the way npm's semver.inc does: a
// prerelease patch bump drops the prerelease, and a leading "v" is accepted.
func NextVersion(current string, bump BumpType) (string, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(current), "v"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, current)
	}
	var next semver.Version
	switch bump {
	case BumpPatch:
		next = v.IncPatch()
	case BumpMinor:
		next = v.IncMinor()
	case BumpMajor:
		next = v.IncMajor()
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBumpType, bump)
	}
	return next.String(), nil
}

// BumpVersion rewrites the top-level "version" member of a manifest document
// and returns the new document and version. Members keep their original
// order; the output is indented with two spaces and has no trailing newline.
func BumpVersion(data []byte, bump BumpType) ([]byte, string, error) {
	members, err := readMembers(data)
	if err != nil {
		return nil, "", err
	}

	idx := -1
	var current string
	for i, m := range members {
		if m.key == "version" {
			idx = i
			if err := json.Unmarshal(m.value, &current); err != nil {
				return nil, "", fmt.Errorf("%w: version is not a string", ErrInvalidVersion)
			}
		}
	}
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: version is missing", ErrInvalidVersion)
	}

	next, err := NextVersion(current, bump)
	if err != nil {
		return nil, "", err
	}
	encoded, err := marshalString(next)
	if err != nil {
		return nil, "", err
	}
	members[idx].value = encoded

	out, err := writeMembers(members)
	if err != nil {
		return nil, "", err
	}
	return out, next, nil
}

// BumpFile applies BumpVersion to the manifest in dir, in place.
func BumpFile(dir string, bump BumpType) (string, error) {
	if _, err := ParseBumpType(string(bump)); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	out, next, err := BumpVersion(data, bump)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat manifest: %w", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return next, nil
}

func readMembers(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parse manifest: top-level value is not an object")
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse manifest: member %q: %w", key, err)
		}
		members = append(members, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse manifest: trailing data after top-level object")
	}
	return members, nil
}

func writeMembers(members []member) ([]byte, error) {
	if len(members) == 0 {
		return []byte("{}"), nil
	}
	var b bytes.Buffer
	b.WriteString("{\n")
	for i, m := range members {
		key, err := marshalString(m.key)
		if err != nil {
			return nil, err
		}
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(": ")
		if err := json.Indent(&b, m.value, "  ", "  "); err != nil {
			return nil, fmt.Errorf("format member %q: %w", m.key, err)
		}
		if i < len(members)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}
