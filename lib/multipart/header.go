// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Header is an ordered multi-map of part header fields. Lookups are
// case-insensitive; the spelling of a name's first occurrence is kept
// for serialization. The zero value is an empty header ready to use,
// and a nil *Header reads as empty.
type Header struct {
	fields []headerField
}

type headerField struct {
	name   string
	values []string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{}
}

func (h *Header) find(name string) int {
	if h == nil {
		return -1
	}
	for index := range h.fields {
		if strings.EqualFold(h.fields[index].name, name) {
			return index
		}
	}
	return -1
}

// Add appends value to the values of name.
func (h *Header) Add(name, value string) {
	if index := h.find(name); index >= 0 {
		h.fields[index].values = append(h.fields[index].values, value)
		return
	}
	h.fields = append(h.fields, headerField{name: name, values: []string{value}})
}

// Set replaces every value of name with value, keeping the field's
// position if it already exists.
func (h *Header) Set(name, value string) {
	if index := h.find(name); index >= 0 {
		h.fields[index].values = []string{value}
		return
	}
	h.fields = append(h.fields, headerField{name: name, values: []string{value}})
}

// Get returns the first value of name, or "".
func (h *Header) Get(name string) string {
	if index := h.find(name); index >= 0 {
		return h.fields[index].values[0]
	}
	return ""
}

// Values returns every value of name in insertion order. The result is
// a copy.
func (h *Header) Values(name string) []string {
	if index := h.find(name); index >= 0 {
		return slices.Clone(h.fields[index].values)
	}
	return nil
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	return h.find(name) >= 0
}

// Del removes name and all its values.
func (h *Header) Del(name string) {
	if index := h.find(name); index >= 0 {
		h.fields = slices.Delete(h.fields, index, index+1)
	}
}

// Names returns the distinct field names in first-occurrence order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, len(h.fields))
	for index, field := range h.fields {
		names[index] = field.name
	}
	return names
}

// Len returns the number of distinct field names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// All yields every (name, value) pair: fields in order, and each
// field's values in insertion order.
func (h *Header) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if h == nil {
			return
		}
		for _, field := range h.fields {
			for _, value := range field.values {
				if !yield(field.name, value) {
					return
				}
			}
		}
	}
}

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	clone := &Header{}
	if h == nil {
		return clone
	}
	clone.fields = make([]headerField, len(h.fields))
	for index, field := range h.fields {
		clone.fields[index] = headerField{name: field.name, values: slices.Clone(field.values)}
	}
	return clone
}

// appendTo renders the header block lines, "Name:Value" CRLF per
// value, without the terminating empty line.
func (h *Header) appendTo(destination []byte) []byte {
	for name, value := range h.All() {
		destination = append(destination, name...)
		destination = append(destination, ':')
		destination = append(destination, value...)
		destination = append(destination, '\r', '\n')
	}
	return destination
}

// validate reports a field that would not survive a round trip: an
// empty name, a name with a colon, whitespace or control byte, or a
// value containing CR or LF.
func (h *Header) validate() error {
	for name, value := range h.All() {
		if name == "" || strings.ContainsFunc(name, func(r rune) bool {
			return r == ':' || r <= ' ' || r == 0x7f
		}) {
			return fmt.Errorf("%w: invalid field name %q", ErrMalformedHeader, name)
		}
		if strings.ContainsAny(value, "\r\n") {
			return fmt.Errorf("%w: line break in %s value", ErrMalformedHeader, name)
		}
	}
	return nil
}
