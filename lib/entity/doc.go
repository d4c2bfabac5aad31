// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package entity converts between typed Go values and the raw content
// bytes of a MIME body part.
//
// A [Registry] holds ordered lists of [Writer] and [Reader]
// implementations. Selection is first-match: the registry asks each
// converter whether it accepts the value (or target) and media type,
// and uses the first that does. Converters registered with Register*
// take precedence over the standard set installed by
// [NewDefaultRegistry]:
//
//   - text/*: string values, transcoded to and from the charset
//     parameter (golang.org/x/text).
//   - application/json, */*+json, application/jsonc: any value, with
//     JSONC comments and trailing commas accepted on read
//     (github.com/tidwall/jsonc).
//   - application/cbor, */*+cbor: Core Deterministic Encoding
//     (github.com/fxamacker/cbor/v2).
//   - application/yaml: gopkg.in/yaml.v3.
//   - any media type: []byte, io.Reader and flow.Publisher[[]byte]
//     entities pass through unchanged; *[]byte and io.Writer targets
//     receive the raw bytes.
//
// Content-Encoding (zstd, lz4) and Content-Digest (BLAKE3) are applied
// around the converters by [Registry.Marshal] and
// [Registry.Unmarshal], driven by the part headers.
//
// The registry never inspects multipart framing; the multipart package
// passes it a media type and a byte stream.
package entity
