// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas.
//
// Every schema-backed document in extforge (the extension manifest and the
// project configuration) goes through the same three steps:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile the user document (JSON is valid CUE) and unify it with the definition
//  3. Validate the unified value and decode it into a Go value
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schema string
//
//	m, err := cueutil.Decode[Manifest](schema, data, "#Manifest",
//	    cueutil.WithFilename("manifest.json"))
//	if err != nil {
//	    var se *cueutil.SchemaError
//	    if errors.As(err, &se) { ... }   // one FieldError per violation
//	}
package cueutil
