// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Unify compiles schema and data, unifies data with the schema definition and
// validates the result. The returned value is ready to be decoded.
//
// Problems with the user document are reported as *SchemaError; a schema
// that fails to compile or lacks the definition is an internal error.
func Unify(schema string, data []byte, definition string, opts ...Option) (cue.Value, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckSize(data, o.maxSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	root := schemaValue.LookupPath(cue.ParsePath(definition))
	if !root.Exists() || root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found", definition)
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return cue.Value{}, NewSchemaError(userValue.Err(), o.filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, NewSchemaError(err, o.filename)
	}

	return unified, nil
}

// Decode runs Unify and decodes the result into a new T.
func Decode[T any](schema string, data []byte, definition string, opts ...Option) (*T, error) {
	unified, err := Unify(schema, data, definition, opts...)
	if err != nil {
		return nil, err
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		o := defaultOptions()
		for _, opt := range opts {
			opt(&o)
		}
		return nil, NewSchemaError(err, o.filename)
	}
	return &out, nil
}

// LookupStrings decodes a concrete list of strings declared in schema under
// path. Schemas use it to share enumerations (such as an allow-list) with Go
// code without duplicating them.
func LookupStrings(schema, path string) ([]string, error) {
	v := cuecontext.New().CompileString(schema)
	if v.Err() != nil {
		return nil, fmt.Errorf("internal error: compile schema: %w", v.Err())
	}
	var out []string
	if err := v.LookupPath(cue.ParsePath(path)).Decode(&out); err != nil {
		return nil, fmt.Errorf("internal error: decode %s: %w", path, err)
	}
	return out, nil
}
