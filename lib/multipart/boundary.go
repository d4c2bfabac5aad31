// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
)

// DefaultBoundary is the token used when the caller supplies none.
const DefaultBoundary = "[^._.^]==>boundary<==[^._.^]"

// MaxBoundaryLength is the RFC 2046 limit on boundary tokens.
const MaxBoundaryLength = 70

// Boundary is a validated boundary token. Its methods render and
// recognize the two delimiter forms, "--token" between parts and
// "--token--" after the last part. The zero Boundary is not usable.
type Boundary struct {
	token     string
	delimiter []byte
}

// NewBoundary validates token: 1 to 70 bytes, no CR or LF, and no
// trailing space.
func NewBoundary(token string) (Boundary, error) {
	switch {
	case token == "":
		return Boundary{}, fmt.Errorf("%w: empty boundary", ErrMissingBoundary)
	case len(token) > MaxBoundaryLength:
		return Boundary{}, fmt.Errorf("%w: boundary is %d bytes, limit %d", ErrMalformedMultipart, len(token), MaxBoundaryLength)
	case strings.ContainsAny(token, "\r\n"):
		return Boundary{}, fmt.Errorf("%w: boundary contains a line break", ErrMalformedMultipart)
	case strings.HasSuffix(token, " "):
		return Boundary{}, fmt.Errorf("%w: boundary ends with a space", ErrMalformedMultipart)
	}
	return Boundary{token: token, delimiter: []byte("--" + token)}, nil
}

// MustBoundary is NewBoundary for literals; it panics on an invalid
// token.
func MustBoundary(token string) Boundary {
	boundary, err := NewBoundary(token)
	if err != nil {
		panic(err)
	}
	return boundary
}

// RandomBoundary returns a boundary of 32 random hex digits, for
// encoders whose content could contain any fixed token.
func RandomBoundary() Boundary {
	var random [16]byte
	if _, err := rand.Read(random[:]); err != nil {
		panic("multipart: crypto/rand failed: " + err.Error())
	}
	return MustBoundary(hex.EncodeToString(random[:]))
}

// BoundaryFromContentType extracts the boundary parameter from a
// multipart Content-Type value.
func BoundaryFromContentType(value string) (Boundary, error) {
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return Boundary{}, fmt.Errorf("%w: content type %q: %v", ErrMalformedMultipart, value, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return Boundary{}, fmt.Errorf("%w: content type %q is not multipart", ErrMalformedMultipart, mediaType)
	}
	token, ok := params["boundary"]
	if !ok || token == "" {
		return Boundary{}, fmt.Errorf("%w: content type %q", ErrMissingBoundary, value)
	}
	return NewBoundary(token)
}

// Token returns the boundary token without dashes.
func (b Boundary) Token() string {
	return b.token
}

func (b Boundary) String() string {
	return b.token
}

// IsZero reports whether b is the unusable zero Boundary.
func (b Boundary) IsZero() bool {
	return b.token == ""
}

// PartDelimiter returns "--token". The result is a fresh slice.
func (b Boundary) PartDelimiter() []byte {
	return bytes.Clone(b.delimiter)
}

// CloseDelimiter returns "--token--". The result is a fresh slice.
func (b Boundary) CloseDelimiter() []byte {
	closing := make([]byte, 0, len(b.delimiter)+2)
	closing = append(closing, b.delimiter...)
	return append(closing, '-', '-')
}

// IsPartDelimiter reports whether data holds a complete part delimiter
// line at pos: "--token", optional transport padding, and a line
// break.
func (b Boundary) IsPartDelimiter(data []byte, pos int) bool {
	if pos < 0 || pos > len(data) {
		return false
	}
	kind, _ := b.matchDelimiter(data[pos:])
	return kind == delimiterPart
}

// IsCloseDelimiter reports whether data holds "--token--" at pos.
func (b Boundary) IsCloseDelimiter(data []byte, pos int) bool {
	if pos < 0 || pos > len(data) {
		return false
	}
	kind, _ := b.matchDelimiter(data[pos:])
	return kind == delimiterClose
}

// ContentType renders "multipart/<subtype>; boundary=<token>", quoting
// the token when it contains characters outside the token grammar.
func (b Boundary) ContentType(subtype string) string {
	if subtype == "" {
		subtype = "form-data"
	}
	return mime.FormatMediaType("multipart/"+subtype, map[string]string{"boundary": b.token})
}

type delimiterKind int

const (
	delimiterNone delimiterKind = iota
	delimiterPart
	delimiterClose
	delimiterNeedMore
	delimiterMalformed
)

// matchDelimiter classifies data, which must start at a candidate
// "--token". For delimiterPart and delimiterClose the returned length
// covers the delimiter and, for a part delimiter, its padding and line
// break. delimiterNeedMore means data is a proper prefix of something
// that could still be a delimiter.
func (b Boundary) matchDelimiter(data []byte) (delimiterKind, int) {
	if len(data) < len(b.delimiter) {
		if bytes.HasPrefix(b.delimiter, data) {
			return delimiterNeedMore, 0
		}
		return delimiterNone, 0
	}
	if !bytes.HasPrefix(data, b.delimiter) {
		return delimiterNone, 0
	}

	position := len(b.delimiter)
	if position == len(data) {
		return delimiterNeedMore, 0
	}
	if data[position] == '-' {
		if position+1 == len(data) {
			return delimiterNeedMore, 0
		}
		if data[position+1] == '-' {
			return delimiterClose, position + 2
		}
		return delimiterMalformed, 0
	}

	padded := false
	for position < len(data) && (data[position] == ' ' || data[position] == '\t') {
		position++
		padded = true
	}
	if position == len(data) {
		return delimiterNeedMore, 0
	}
	switch data[position] {
	case '\n':
		return delimiterPart, position + 1
	case '\r':
		if position+1 == len(data) {
			return delimiterNeedMore, 0
		}
		if data[position+1] == '\n' {
			return delimiterPart, position + 2
		}
	}
	if padded {
		return delimiterMalformed, 0
	}
	return delimiterNone, 0
}
