// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"slices"
	"testing"
)

func TestHeaderCaseInsensitive(t *testing.T) {
	header := NewHeader()
	header.Add("Content-ID", "first")
	header.Add("content-id", "second")
	header.Add("X-Other", "value")

	for _, name := range []string{"Content-ID", "content-id", "CONTENT-ID", "Content-Id"} {
		if got := header.Get(name); got != "first" {
			t.Errorf("Get(%q) = %q, want first", name, got)
		}
		if got := header.Values(name); !slices.Equal(got, []string{"first", "second"}) {
			t.Errorf("Values(%q) = %v, want [first second]", name, got)
		}
		if !header.Has(name) {
			t.Errorf("Has(%q) = false", name)
		}
	}
	if got := header.Names(); !slices.Equal(got, []string{"Content-ID", "X-Other"}) {
		t.Errorf("Names() = %v, want first spellings in order", got)
	}
	if header.Len() != 2 {
		t.Errorf("Len() = %d, want 2", header.Len())
	}
}

func TestHeaderSetAndDel(t *testing.T) {
	header := NewHeader()
	header.Add("A", "1")
	header.Add("B", "2")
	header.Add("a", "3")

	header.Set("a", "replaced")
	if got := header.Values("A"); !slices.Equal(got, []string{"replaced"}) {
		t.Errorf("Values after Set = %v", got)
	}
	if got := header.Names(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("Set moved the field: %v", got)
	}

	header.Del("b")
	if header.Has("B") || header.Len() != 1 {
		t.Errorf("Del left %v", header.Names())
	}
	header.Del("missing")
}

func TestHeaderAllAndRendering(t *testing.T) {
	header := NewHeader()
	header.Add("Content-Type", "text/plain")
	header.Add("X-Tag", "a")
	header.Add("x-tag", "b")

	var pairs []string
	for name, value := range header.All() {
		pairs = append(pairs, name+"="+value)
	}
	if want := []string{"Content-Type=text/plain", "X-Tag=a", "X-Tag=b"}; !slices.Equal(pairs, want) {
		t.Errorf("All() = %v, want %v", pairs, want)
	}

	rendered := string(header.appendTo(nil))
	if want := "Content-Type:text/plain\r\nX-Tag:a\r\nX-Tag:b\r\n"; rendered != want {
		t.Errorf("appendTo = %q, want %q", rendered, want)
	}
}

func TestHeaderCloneIsIndependent(t *testing.T) {
	header := NewHeader()
	header.Add("A", "1")
	clone := header.Clone()
	clone.Add("A", "2")
	clone.Add("B", "3")

	if got := header.Values("A"); !slices.Equal(got, []string{"1"}) {
		t.Errorf("original changed through clone: %v", got)
	}
	if clone.Len() != 2 {
		t.Errorf("clone Len() = %d, want 2", clone.Len())
	}
}

func TestNilHeaderReadsEmpty(t *testing.T) {
	var header *Header
	if header.Get("A") != "" || header.Has("A") || header.Len() != 0 || header.Names() != nil {
		t.Error("nil header should read as empty")
	}
	for range header.All() {
		t.Error("nil header yielded a field")
	}
	if header.Clone().Len() != 0 {
		t.Error("clone of nil header is not empty")
	}
}
