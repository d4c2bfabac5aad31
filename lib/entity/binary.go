// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// BinaryConverter passes raw bytes through for any media type.
//
// Writable entities: []byte, io.Reader (read on demand, closed at the
// end if it is an io.Closer), flow.Publisher[[]byte]. Readable targets:
// *[]byte and io.Writer.
type BinaryConverter struct {
	ChunkSize int
}

func (c BinaryConverter) CanWrite(entity any, _ MediaType) bool {
	switch entity.(type) {
	case []byte, io.Reader, flow.Publisher[[]byte]:
		return true
	}
	return false
}

func (c BinaryConverter) CanRead(target any, _ MediaType) bool {
	switch target.(type) {
	case *[]byte, io.Writer:
		return true
	}
	return false
}

func (c BinaryConverter) Write(_ context.Context, entity any, mediaType MediaType) (Payload, error) {
	if mediaType.IsZero() {
		mediaType = MediaType{Type: OctetStream}
	}
	switch value := entity.(type) {
	case []byte:
		return Payload{Content: flow.FromBytes(value, c.ChunkSize), MediaType: mediaType}, nil
	case flow.Publisher[[]byte]:
		return Payload{Content: value, MediaType: mediaType}, nil
	case io.Reader:
		return Payload{Content: flow.FromReader(value, c.ChunkSize), MediaType: mediaType}, nil
	}
	return Payload{}, fmt.Errorf("%w: %T is not binary", ErrUnsupportedEntity, entity)
}

func (c BinaryConverter) Read(_ context.Context, content io.Reader, target any, _ MediaType) error {
	switch destination := target.(type) {
	case *[]byte:
		data, err := io.ReadAll(content)
		if err != nil {
			return err
		}
		*destination = data
		return nil
	case io.Writer:
		_, err := io.Copy(destination, content)
		return err
	}
	return fmt.Errorf("%w: %T is not a binary target", ErrUnsupportedEntity, target)
}
