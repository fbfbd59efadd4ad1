// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name!:    string
	count?:   int
	tags?:    [...string]
	sizes?: {
		"16"?: string
		...
	}
	...
}

#Colors: ["red", "green"]
`

type testDoc struct {
	Name  string            `json:"name"`
	Count int               `json:"count"`
	Tags  []string          `json:"tags"`
	Sizes map[string]string `json:"sizes"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("json document decodes", func(t *testing.T) {
		t.Parallel()

		doc, err := Decode[testDoc](testSchema, []byte(`{"name": "x", "count": 2, "tags": ["a", "b"], "extra": true}`), "#Doc")
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if doc.Name != "x" || doc.Count != 2 {
			t.Errorf("Decode() = %+v", doc)
		}
		if len(doc.Tags) != 2 || doc.Tags[1] != "b" {
			t.Errorf("Tags = %v, want [a b]", doc.Tags)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc](testSchema, []byte(`{"count": 1}`), "#Doc", WithFilename("doc.json"))
		if err == nil {
			t.Fatal("Decode() should reject a document without name")
		}
		if !errors.Is(err, ErrSchema) {
			t.Errorf("error %v does not wrap ErrSchema", err)
		}
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("error %T is not *SchemaError", err)
		}
		if se.Filename != "doc.json" {
			t.Errorf("Filename = %q, want doc.json", se.Filename)
		}
		if !strings.Contains(err.Error(), "name") {
			t.Errorf("error should mention the missing field, got: %v", err)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc](testSchema, []byte(`{"name": "x", "tags": [1]}`), "#Doc")
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("expected *SchemaError, got %v", err)
		}
		found := false
		for _, p := range se.Paths() {
			if p == "tags[0]" {
				found = true
			}
		}
		if !found {
			t.Errorf("Paths() = %v, want tags[0]", se.Paths())
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc](testSchema, []byte(`{"name": `), "#Doc")
		if !errors.Is(err, ErrSchema) {
			t.Errorf("syntax error should be a schema error, got %v", err)
		}
	})

	t.Run("unknown definition", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc](testSchema, []byte(`{"name": "x"}`), "#Missing")
		if err == nil || errors.Is(err, ErrSchema) {
			t.Errorf("missing definition should be an internal error, got %v", err)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc](testSchema, []byte(`{"name": "xxxxxxxx"}`), "#Doc", WithMaxSize(4))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("expected size error, got %v", err)
		}
	})
}

func TestLookupStrings(t *testing.T) {
	t.Parallel()

	got, err := LookupStrings(testSchema, "#Colors")
	if err != nil {
		t.Fatalf("LookupStrings() error = %v", err)
	}
	if strings.Join(got, ",") != "red,green" {
		t.Errorf("LookupStrings() = %v", got)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{name: "empty", path: nil, want: ""},
		{name: "single", path: []string{"name"}, want: "name"},
		{name: "nested", path: []string{"background", "service_worker"}, want: "background.service_worker"},
		{name: "index", path: []string{"content_scripts", "0", "js"}, want: "content_scripts[0].js"},
		{name: "trailing index", path: []string{"permissions", "3"}, want: "permissions[3]"},
		{name: "quoted key", path: []string{"icons", `"16"`}, want: `icons["16"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatPath(tt.path); got != tt.want {
				t.Errorf("FormatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	t.Parallel()

	single := &SchemaError{Filename: "m.json", Fields: []FieldError{{Path: "name", Message: "required"}}}
	if got := single.Error(); got != "m.json: name: required" {
		t.Errorf("Error() = %q", got)
	}

	multi := &SchemaError{Filename: "m.json", Fields: []FieldError{
		{Path: "name", Message: "required"},
		{Message: "bad"},
	}}
	if !strings.Contains(multi.Error(), "2 schema violations") {
		t.Errorf("Error() = %q", multi.Error())
	}
	if got := multi.Paths(); len(got) != 1 || got[0] != "name" {
		t.Errorf("Paths() = %v", got)
	}
}
