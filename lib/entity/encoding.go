// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ContentEncoding names the compression applied to a part's content,
// as carried in its Content-Encoding header.
type ContentEncoding string

const (
	// EncodingIdentity leaves content unchanged. An absent header means
	// the same thing.
	EncodingIdentity ContentEncoding = "identity"

	// EncodingZstd is a zstd stream at the default level. Good ratios
	// for text, JSON and logs.
	EncodingZstd ContentEncoding = "zstd"

	// EncodingLZ4 is an LZ4 frame. Cheaper to produce than zstd with a
	// lower ratio.
	EncodingLZ4 ContentEncoding = "lz4"
)

// ParseContentEncoding parses a Content-Encoding header value. Empty
// input is identity.
func ParseContentEncoding(value string) (ContentEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "identity":
		return EncodingIdentity, nil
	case "zstd":
		return EncodingZstd, nil
	case "lz4":
		return EncodingLZ4, nil
	default:
		return "", fmt.Errorf("%w: content encoding %q", ErrUnsupportedEntity, value)
	}
}

// zstdEncoder is shared; EncodeAll is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("entity: zstd encoder initialization failed: " + err.Error())
	}
}

// EncodeContent compresses data with encoding. Identity returns data
// itself, not a copy.
func EncodeContent(data []byte, encoding ContentEncoding) ([]byte, error) {
	switch encoding {
	case "", EncodingIdentity:
		return data, nil

	case EncodingZstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case EncodingLZ4:
		var compressed bytes.Buffer
		writer := lz4.NewWriter(&compressed)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return compressed.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: content encoding %q", ErrUnsupportedEntity, encoding)
	}
}

// DecodeContent wraps source with a decompressor for encoding. The
// caller must close the returned reader; closing does not close
// source.
func DecodeContent(source io.Reader, encoding ContentEncoding) (io.ReadCloser, error) {
	switch encoding {
	case "", EncodingIdentity:
		return io.NopCloser(source), nil

	case EncodingZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return decoder.IOReadCloser(), nil

	case EncodingLZ4:
		return io.NopCloser(lz4.NewReader(source)), nil

	default:
		return nil, fmt.Errorf("%w: content encoding %q", ErrUnsupportedEntity, encoding)
	}
}
