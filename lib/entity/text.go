// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// TextConverter writes string entities and reads *string targets.
//
// Strings are written as-is for textual media types (text/*, JSON,
// YAML) so callers can send pre-formatted documents; a zero media type
// becomes text/plain with DefaultCharset. Content is transcoded when
// the charset is neither UTF-8 nor US-ASCII. Any media type can be
// read into a *string; only text/* content is transcoded.
type TextConverter struct {
	DefaultCharset string
	ChunkSize      int
}

func (c TextConverter) CanWrite(entity any, mediaType MediaType) bool {
	_, ok := entity.(string)
	return ok && (mediaType.IsZero() || isTextual(mediaType))
}

func (c TextConverter) CanRead(target any, _ MediaType) bool {
	_, ok := target.(*string)
	return ok
}

func (c TextConverter) Write(_ context.Context, entity any, mediaType MediaType) (Payload, error) {
	text, ok := entity.(string)
	if !ok {
		return Payload{}, fmt.Errorf("%w: %T is not a string", ErrUnsupportedEntity, entity)
	}
	if mediaType.IsZero() {
		mediaType = MediaType{Type: TextPlain, Params: map[string]string{"charset": c.charset(mediaType)}}
	}

	data := []byte(text)
	if mediaType.TopLevel() == "text" {
		textEncoding, err := lookupCharset(c.charset(mediaType))
		if err != nil {
			return Payload{}, err
		}
		if textEncoding != nil {
			data, err = textEncoding.NewEncoder().Bytes(data)
			if err != nil {
				return Payload{}, fmt.Errorf("encode %s: %w", c.charset(mediaType), err)
			}
		}
	}
	return Payload{Content: flow.FromBytes(data, c.ChunkSize), MediaType: mediaType}, nil
}

func (c TextConverter) Read(_ context.Context, content io.Reader, target any, mediaType MediaType) error {
	destination, ok := target.(*string)
	if !ok {
		return fmt.Errorf("%w: %T is not *string", ErrUnsupportedEntity, target)
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if mediaType.IsZero() || mediaType.TopLevel() == "text" {
		textEncoding, err := lookupCharset(c.charset(mediaType))
		if err != nil {
			return err
		}
		if textEncoding != nil {
			data, err = textEncoding.NewDecoder().Bytes(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", c.charset(mediaType), err)
			}
		}
	}
	*destination = string(data)
	return nil
}

func (c TextConverter) charset(mediaType MediaType) string {
	if charset := mediaType.Charset(); charset != "" {
		return charset
	}
	if c.DefaultCharset != "" {
		return c.DefaultCharset
	}
	return DefaultCharset
}

// SupportedCharset reports whether text content in charset can be
// transcoded.
func SupportedCharset(charset string) bool {
	_, err := lookupCharset(strings.ToLower(charset))
	return err == nil
}

// lookupCharset returns the encoding for charset, or nil when the
// bytes are already UTF-8 compatible.
func lookupCharset(charset string) (encoding.Encoding, error) {
	switch charset {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return nil, nil
	}
	textEncoding, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %q", ErrUnsupportedEntity, charset)
	}
	return textEncoding, nil
}

func isTextual(mediaType MediaType) bool {
	return mediaType.TopLevel() == "text" || isJSON(mediaType) || isYAML(mediaType)
}
