// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2): the
// same value always produces the same bytes, so Content-Digest values
// are stable across encoders.
var cborEncMode cbor.EncMode

// cborDecMode decodes untyped maps as map[string]any so that values
// read from CBOR parts can be handed to JSON-oriented code.
var cborDecMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	cborEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("entity: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("entity: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORConverter handles application/cbor and any +cbor media type.
// Struct fields use cbor tags, falling back to json tags.
type CBORConverter struct {
	ChunkSize int
}

func (c CBORConverter) CanWrite(entity any, mediaType MediaType) bool {
	return entity != nil && isCBOR(mediaType)
}

func (c CBORConverter) CanRead(target any, mediaType MediaType) bool {
	return isPointer(target) && isCBOR(mediaType)
}

func (c CBORConverter) Write(_ context.Context, entity any, mediaType MediaType) (Payload, error) {
	data, err := cborEncMode.Marshal(entity)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal CBOR: %w", err)
	}
	return Payload{Content: flow.FromBytes(data, c.ChunkSize), MediaType: mediaType}, nil
}

func (c CBORConverter) Read(_ context.Context, content io.Reader, target any, _ MediaType) error {
	if err := cborDecMode.NewDecoder(content).Decode(target); err != nil {
		return fmt.Errorf("unmarshal CBOR: %w", err)
	}
	return nil
}

func isCBOR(mediaType MediaType) bool {
	return mediaType.Type == ApplicationCBOR || mediaType.HasSuffix("cbor")
}
