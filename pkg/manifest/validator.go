// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/extforge/extforge/pkg/cueutil"
)

//go:embed manifest_schema.cue
var manifestSchema string

// Validator checks manifests against the embedded schema. The zero value is
// ready to use and safe for concurrent use.
type Validator struct {
	// Filename is used in error messages. Defaults to FileName.
	Filename string
}

// NewValidator returns a Validator reporting errors against filename.
func NewValidator(filename string) *Validator {
	return &Validator{Filename: filename}
}

// Validate checks raw manifest JSON and returns the decoded manifest. Every
// field the document sets is carried over unchanged.
func (v *Validator) Validate(raw []byte) (*Manifest, error) {
	m, err := cueutil.Decode[Manifest](manifestSchema, raw, "#Manifest", cueutil.WithFilename(v.filename()))
	if err != nil {
		return nil, newValidationError(err, v.filename(), raw)
	}
	return m, nil
}

// ValidateValue validates an already decoded document, typically a
// map[string]any produced by encoding/json.
func (v *Validator) ValidateValue(doc any) (*Manifest, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: encode manifest: %w", v.filename(), err)
	}
	return v.Validate(raw)
}

func (v *Validator) filename() string {
	if v == nil || v.Filename == "" {
		return FileName
	}
	return v.Filename
}

// Validate checks raw manifest JSON with a default Validator.
func Validate(raw []byte) (*Manifest, error) {
	return (&Validator{}).Validate(raw)
}

// ReadFile reads the manifest in dir without validating it.
func ReadFile(dir string) ([]byte, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return data, nil
}

// Load reads and validates the manifest in dir.
func Load(dir string) (*Manifest, error) {
	data, err := ReadFile(dir)
	if err != nil {
		return nil, err
	}
	return NewValidator(filepath.Join(dir, FileName)).Validate(data)
}
