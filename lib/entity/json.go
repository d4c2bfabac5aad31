// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// JSONConverter handles application/json, application/jsonc and any
// +json media type. With no media type it claims structured values
// (structs, maps, slices and pointers to them), making JSON the
// default for typed entities.
//
// Input is passed through jsonc.ToJSON before decoding, so comments
// and trailing commas are accepted in both JSON and JSONC content.
type JSONConverter struct {
	ChunkSize int
}

func (c JSONConverter) CanWrite(entity any, mediaType MediaType) bool {
	return c.accepts(entity, mediaType)
}

func (c JSONConverter) CanRead(target any, mediaType MediaType) bool {
	return isPointer(target) && c.accepts(target, mediaType)
}

func (c JSONConverter) accepts(value any, mediaType MediaType) bool {
	if value == nil {
		return false
	}
	if isJSON(mediaType) {
		return true
	}
	return mediaType.IsZero() && isStructured(reflect.TypeOf(value))
}

func (c JSONConverter) Write(_ context.Context, entity any, mediaType MediaType) (Payload, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal JSON: %w", err)
	}
	if mediaType.IsZero() {
		mediaType = MediaType{Type: ApplicationJSON}
	}
	return Payload{Content: flow.FromBytes(data, c.ChunkSize), MediaType: mediaType}, nil
}

func (c JSONConverter) Read(_ context.Context, content io.Reader, target any, _ MediaType) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), target); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return nil
}

func isJSON(mediaType MediaType) bool {
	switch mediaType.Type {
	case ApplicationJSON, ApplicationJSONC:
		return true
	}
	return mediaType.HasSuffix("json")
}

func isPointer(value any) bool {
	return value != nil && reflect.TypeOf(value).Kind() == reflect.Pointer
}

// isStructured reports whether values of t have a natural structured
// representation: structs, maps, slices other than []byte, and
// pointers to any of these.
func isStructured(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return true
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}
