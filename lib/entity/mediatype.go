// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"fmt"
	"mime"
	"strings"
)

// MediaType is a parsed Content-Type value. Type is lower-case
// "type/subtype"; an empty Type means "no preference".
type MediaType struct {
	Type   string
	Params map[string]string
}

// Common media types.
const (
	TextPlain        = "text/plain"
	ApplicationJSON  = "application/json"
	ApplicationJSONC = "application/jsonc"
	ApplicationCBOR  = "application/cbor"
	ApplicationYAML  = "application/yaml"
	OctetStream      = "application/octet-stream"
)

// ParseMediaType parses a Content-Type header value. An empty value
// yields the zero MediaType.
func ParseMediaType(value string) (MediaType, error) {
	if strings.TrimSpace(value) == "" {
		return MediaType{}, nil
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return MediaType{}, fmt.Errorf("parse media type %q: %w", value, err)
	}
	return MediaType{Type: mediaType, Params: params}, nil
}

// MustParseMediaType is ParseMediaType for literals; it panics on
// malformed input.
func MustParseMediaType(value string) MediaType {
	mediaType, err := ParseMediaType(value)
	if err != nil {
		panic(err)
	}
	return mediaType
}

// String formats the media type with its parameters, quoting values
// that need it. The zero MediaType formats as "".
func (m MediaType) String() string {
	if m.Type == "" {
		return ""
	}
	formatted := mime.FormatMediaType(m.Type, m.Params)
	if formatted == "" {
		return m.Type
	}
	return formatted
}

// IsZero reports whether no media type was given.
func (m MediaType) IsZero() bool {
	return m.Type == ""
}

// Charset returns the charset parameter, lower-cased, or "".
func (m MediaType) Charset() string {
	return strings.ToLower(m.Params["charset"])
}

// TopLevel returns the part before the slash ("text" for text/plain).
func (m MediaType) TopLevel() string {
	topLevel, _, _ := strings.Cut(m.Type, "/")
	return topLevel
}

// HasSuffix reports whether the subtype carries the structured syntax
// suffix (e.g. "json" for application/ld+json).
func (m MediaType) HasSuffix(suffix string) bool {
	return strings.HasSuffix(m.Type, "+"+suffix)
}

// WithParam returns a copy with the parameter set.
func (m MediaType) WithParam(name, value string) MediaType {
	params := make(map[string]string, len(m.Params)+1)
	for key, existing := range m.Params {
		params[key] = existing
	}
	params[strings.ToLower(name)] = value
	return MediaType{Type: m.Type, Params: params}
}
