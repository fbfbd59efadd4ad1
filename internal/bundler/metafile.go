// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"encoding/json"
	"maps"
	"slices"
)

type (
	// Metafile is the subset of esbuild's metafile used for build reports.
	Metafile struct {
		Inputs  map[string]MetafileInput  `json:"inputs"`
		Outputs map[string]MetafileOutput `json:"outputs"`
	}

	// MetafileInput is one source file seen by esbuild.
	MetafileInput struct {
		Bytes   int              `json:"bytes"`
		Imports []MetafileImport `json:"imports"`
		Format  string           `json:"format,omitempty"`
	}

	// MetafileImport is one import statement of an input or output.
	MetafileImport struct {
		Path     string `json:"path"`
		Kind     string `json:"kind"`
		External bool   `json:"external,omitempty"`
		Original string `json:"original,omitempty"`
	}

	// MetafileOutput is one file esbuild wrote.
	MetafileOutput struct {
		Bytes      int                     `json:"bytes"`
		Inputs     map[string]InputContrib `json:"inputs"`
		Imports    []MetafileImport        `json:"imports"`
		Exports    []string                `json:"exports"`
		EntryPoint string                  `json:"entryPoint,omitempty"`
	}

	// InputContrib is how much of an input ended up in an output.
	InputContrib struct {
		BytesInOutput int `json:"bytesInOutput"`
	}

	// OutputReport summarizes one output file.
	OutputReport struct {
		Path   string
		Bytes  int
		Inputs int
	}
)

// ParseMetafile decodes the metafile string of a build result. An empty
// string yields an empty Metafile.
func ParseMetafile(raw string) (*Metafile, error) {
	m := &Metafile{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		return nil, err
	}
	return m, nil
}

// Report lists the outputs sorted by path.
func (m *Metafile) Report() []OutputReport {
	out := make([]OutputReport, 0, len(m.Outputs))
	for _, path := range slices.Sorted(maps.Keys(m.Outputs)) {
		o := m.Outputs[path]
		out = append(out, OutputReport{Path: path, Bytes: o.Bytes, Inputs: len(o.Inputs)})
	}
	return out
}

// TotalBytes sums the size of every output.
func (m *Metafile) TotalBytes() int {
	total := 0
	for _, o := range m.Outputs {
		total += o.Bytes
	}
	return total
}
