// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"errors"
	"strings"
	"testing"
)

func TestNewBoundary(t *testing.T) {
	valid := []string{"B", "boundary", DefaultBoundary, strings.Repeat("x", MaxBoundaryLength), "has space inside"}
	for _, token := range valid {
		t.Run("valid "+token, func(t *testing.T) {
			boundary, err := NewBoundary(token)
			if err != nil {
				t.Fatalf("NewBoundary(%q) failed: %v", token, err)
			}
			if boundary.Token() != token {
				t.Errorf("Token() = %q, want %q", boundary.Token(), token)
			}
		})
	}

	invalid := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingBoundary},
		{"too long", strings.Repeat("x", MaxBoundaryLength+1), ErrMalformedMultipart},
		{"line break", "a\r\nb", ErrMalformedMultipart},
		{"trailing space", "abc ", ErrMalformedMultipart},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundary(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewBoundary(%q) error = %v, want %v", tt.token, err, tt.want)
			}
		})
	}
}

func TestBoundaryDelimiters(t *testing.T) {
	boundary := MustBoundary("b")
	if got := string(boundary.PartDelimiter()); got != "--b" {
		t.Errorf("PartDelimiter() = %q, want --b", got)
	}
	if got := string(boundary.CloseDelimiter()); got != "--b--" {
		t.Errorf("CloseDelimiter() = %q, want --b--", got)
	}

	// Callers own the returned slices.
	boundary.PartDelimiter()[0] = 'x'
	if got := string(boundary.PartDelimiter()); got != "--b" {
		t.Errorf("PartDelimiter() after caller mutation = %q", got)
	}
}

func TestBoundaryRecognition(t *testing.T) {
	boundary := MustBoundary("b")
	tests := []struct {
		data      string
		pos       int
		wantPart  bool
		wantClose bool
	}{
		{"--b\r\n", 0, true, false},
		{"--b\n", 0, true, false},
		{"--b \t\r\n", 0, true, false},
		{"--b--", 0, false, true},
		{"--b--\r\n", 0, false, true},
		{"x\r\n--b\r\n", 3, true, false},
		{"--b", 0, false, false},
		{"--bc\r\n", 0, false, false},
		{"--b-x", 0, false, false},
		{"--b x", 0, false, false},
		{"-b\r\n", 0, false, false},
		{"--b\r\n", 9, false, false},
	}
	for _, tt := range tests {
		if got := boundary.IsPartDelimiter([]byte(tt.data), tt.pos); got != tt.wantPart {
			t.Errorf("IsPartDelimiter(%q, %d) = %v, want %v", tt.data, tt.pos, got, tt.wantPart)
		}
		if got := boundary.IsCloseDelimiter([]byte(tt.data), tt.pos); got != tt.wantClose {
			t.Errorf("IsCloseDelimiter(%q, %d) = %v, want %v", tt.data, tt.pos, got, tt.wantClose)
		}
	}
}

func TestMatchDelimiterPartialInput(t *testing.T) {
	boundary := MustBoundary("bound")
	tests := []struct {
		data string
		want delimiterKind
	}{
		{"", delimiterNeedMore},
		{"-", delimiterNeedMore},
		{"--bou", delimiterNeedMore},
		{"--bound", delimiterNeedMore},
		{"--bound-", delimiterNeedMore},
		{"--bound  ", delimiterNeedMore},
		{"--bound\r", delimiterNeedMore},
		{"--box", delimiterNone},
		{"--bound-x", delimiterMalformed},
		{"--bound  x", delimiterMalformed},
		{"--boundary", delimiterNone},
	}
	for _, tt := range tests {
		if got, _ := boundary.matchDelimiter([]byte(tt.data)); got != tt.want {
			t.Errorf("matchDelimiter(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestBoundaryContentType(t *testing.T) {
	if got := MustBoundary("simple").ContentType(""); got != "multipart/form-data; boundary=simple" {
		t.Errorf("ContentType = %q", got)
	}
	got := MustBoundary(DefaultBoundary).ContentType("mixed")
	if !strings.HasPrefix(got, "multipart/mixed; boundary=\"") {
		t.Errorf("default boundary should be quoted: %q", got)
	}

	parsed, err := BoundaryFromContentType(got)
	if err != nil {
		t.Fatalf("BoundaryFromContentType(%q) failed: %v", got, err)
	}
	if parsed.Token() != DefaultBoundary {
		t.Errorf("roundtrip token = %q, want %q", parsed.Token(), DefaultBoundary)
	}
}

func TestBoundaryFromContentTypeErrors(t *testing.T) {
	tests := []struct {
		value string
		want  error
	}{
		{"multipart/form-data", ErrMissingBoundary},
		{"multipart/mixed; boundary=\"\"", ErrMissingBoundary},
		{"text/plain; boundary=x", ErrMalformedMultipart},
		{"multipart/", ErrMalformedMultipart},
	}
	for _, tt := range tests {
		if _, err := BoundaryFromContentType(tt.value); !errors.Is(err, tt.want) {
			t.Errorf("BoundaryFromContentType(%q) error = %v, want %v", tt.value, err, tt.want)
		}
	}
}

func TestRandomBoundary(t *testing.T) {
	first, second := RandomBoundary(), RandomBoundary()
	if len(first.Token()) != 32 {
		t.Errorf("random token %q has length %d, want 32", first.Token(), len(first.Token()))
	}
	if first.Token() == second.Token() {
		t.Error("two random boundaries are equal")
	}
}
