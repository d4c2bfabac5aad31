// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput adds a --json flag to a params struct by embedding:
//
//	type inspectParams struct {
//	    cli.JSONOutput
//	    Boundary string `flag:"boundary" desc:"boundary token"`
//	}
//
// Run then calls EmitJSON first and falls back to text output when it
// reports that --json was not given.
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result to w when --json is set and reports whether
// it did. A nil slice or map is written as an empty one so consumers
// never see null for a collection.
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(w, emptyIfNil(result))
}

// WriteJSON writes value to w as two-space indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func emptyIfNil(value any) any {
	reflected := reflect.ValueOf(value)
	switch {
	case reflected.Kind() == reflect.Slice && reflected.IsNil():
		return reflect.MakeSlice(reflected.Type(), 0, 0).Interface()
	case reflected.Kind() == reflect.Map && reflected.IsNil():
		return reflect.MakeMap(reflected.Type()).Interface()
	}
	return value
}
