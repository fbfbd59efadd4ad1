// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep Go json tags and the CUE schema field names aligned, so a
// renamed field cannot be silently dropped during decoding.

func cueFields(t *testing.T, defPath string) []string {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath(defPath))
	if def.Err() != nil {
		t.Fatalf("failed to lookup %s: %v", defPath, def.Err())
	}

	iter, err := def.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	var fields []string
	for iter.Next() {
		fields = append(fields, strings.TrimSuffix(iter.Selector().String(), "?"))
	}
	slices.Sort(fields)
	return fields
}

func goFields(typ reflect.Type) []string {
	var fields []string
	for i := range typ.NumField() {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
	}
	slices.Sort(fields)
	return fields
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#BuildConfig", reflect.TypeFor[BuildConfig]()},
		{"#WatchConfig", reflect.TypeFor[WatchConfig]()},
		{"#UIConfig", reflect.TypeFor[UIConfig]()},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()
			if got, want := cueFields(t, tt.def), goFields(tt.typ); !slices.Equal(got, want) {
				t.Errorf("CUE fields %v != Go json tags %v", got, want)
			}
		})
	}
}
