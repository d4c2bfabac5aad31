// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/mpcodec/lib/testutil"
)

// parseChunks feeds chunks to a parser and returns its events rendered
// as strings, with adjacent content events merged and DataRequired
// dropped, so that results from different splits compare equal.
func parseChunks(t *testing.T, boundary Boundary, chunks [][]byte, limits Limits) ([]string, error) {
	t.Helper()
	parser := NewParser(boundary, limits)
	var events []string
	var content strings.Builder
	flush := func() {
		if content.Len() > 0 {
			events = append(events, "content:"+content.String())
			content.Reset()
		}
	}

	next := 0
	for {
		event, err := parser.Next()
		if errors.Is(err, io.EOF) {
			flush()
			return events, nil
		}
		if err != nil {
			flush()
			return events, err
		}
		switch event.Kind {
		case EventDataRequired:
			if next == len(chunks) {
				parser.Close()
				continue
			}
			if err := parser.Offer(chunks[next]); err != nil {
				t.Fatalf("Offer failed: %v", err)
			}
			next++
		case EventContent:
			if len(event.Data) == 0 {
				t.Fatal("parser emitted an empty content event")
			}
			content.Write(event.Data)
		case EventHeader:
			flush()
			events = append(events, "header:"+event.Name+"="+event.Value)
		default:
			flush()
			events = append(events, event.Kind.String())
		}
	}
}

func TestParserEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single part",
			input: "--B\r\nContent-Id: part1\r\n\r\nbody 1\r\n--B--",
			want:  []string{"start-part", "header:Content-Id=part1", "end-headers", "content:body 1", "end-part", "end-message"},
		},
		{
			name:  "two parts with preamble and epilogue",
			input: "preamble line\r\n--B\r\nA: 1\r\n\r\nfirst\r\n--B\r\nB: 2\r\n\r\nsecond\r\n--B--\r\nepilogue",
			want: []string{
				"start-part", "header:A=1", "end-headers", "content:first", "end-part",
				"start-part", "header:B=2", "end-headers", "content:second", "end-part",
				"end-message",
			},
		},
		{
			name:  "no headers",
			input: "--B\r\n\r\ncontent only\r\n--B--",
			want:  []string{"start-part", "end-headers", "content:content only", "end-part", "end-message"},
		},
		{
			name:  "empty content",
			input: "--B\r\nA: 1\r\n\r\n\r\n--B--",
			want:  []string{"start-part", "header:A=1", "end-headers", "end-part", "end-message"},
		},
		{
			name:  "delimiter directly after header block",
			input: "--B\r\nA: 1\r\n\r\n--B--",
			want:  []string{"start-part", "header:A=1", "end-headers", "end-part", "end-message"},
		},
		{
			name:  "delimiter directly after delimiter",
			input: "--B\r\n--B\r\n\r\nx\r\n--B--",
			want: []string{
				"start-part", "end-headers", "end-part",
				"start-part", "end-headers", "content:x", "end-part",
				"end-message",
			},
		},
		{
			name:  "duplicate headers",
			input: "--B\r\nX-Tag: a\r\nx-tag: b\r\n\r\nx\r\n--B--",
			want:  []string{"start-part", "header:X-Tag=a", "header:x-tag=b", "end-headers", "content:x", "end-part", "end-message"},
		},
		{
			name:  "bare LF line breaks",
			input: "--B\nA: 1\n\nfirst\n--B\n\nsecond\n--B--",
			want: []string{
				"start-part", "header:A=1", "end-headers", "content:first", "end-part",
				"start-part", "end-headers", "content:second", "end-part",
				"end-message",
			},
		},
		{
			name:  "transport padding",
			input: "--B \t\r\n\r\nx\r\n--B  \r\n\r\ny\r\n--B--",
			want: []string{
				"start-part", "end-headers", "content:x", "end-part",
				"start-part", "end-headers", "content:y", "end-part",
				"end-message",
			},
		},
		{
			name:  "boundary-like content",
			input: "--B\r\n\r\n--Bob\r\nline\r\n--Bx\r\n-\r\n--\r\n--B--",
			want:  []string{"start-part", "end-headers", "content:--Bob\r\nline\r\n--Bx\r\n-\r\n--", "end-part", "end-message"},
		},
		{
			name:  "content keeps inner line breaks",
			input: "--B\r\n\r\n\r\n\r\nx\r\n\r\n\r\n--B--",
			want:  []string{"start-part", "end-headers", "content:\r\n\r\nx\r\n\r\n", "end-part", "end-message"},
		},
		{
			name:  "empty message",
			input: "--B--",
			want:  []string{"end-message"},
		},
		{
			name:  "delimiter in preamble must start a line",
			input: "text --B\r\nmore\r\n--B\r\n\r\nx\r\n--B--",
			want:  []string{"start-part", "end-headers", "content:x", "end-part", "end-message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boundary := MustBoundary("B")
			data := []byte(tt.input)

			whole, err := parseChunks(t, boundary, [][]byte{data}, Limits{})
			if err != nil {
				t.Fatalf("parse whole input: %v", err)
			}
			if !slices.Equal(whole, tt.want) {
				t.Fatalf("events:\n got %q\nwant %q", whole, tt.want)
			}

			for size := 1; size <= 8; size++ {
				split, err := parseChunks(t, boundary, testutil.SplitEvery(data, size), Limits{})
				if err != nil {
					t.Fatalf("parse in %d-byte chunks: %v", size, err)
				}
				if !slices.Equal(split, whole) {
					t.Fatalf("%d-byte chunks:\n got %q\nwant %q", size, split, whole)
				}
			}
		})
	}
}

func TestParserSplitAtEveryOffset(t *testing.T) {
	boundary := MustBoundary(DefaultBoundary)
	input := []byte("--" + DefaultBoundary + "\r\nContent-Type: text/plain\r\n\r\n" +
		"line one\r\n--" + DefaultBoundary[:10] + "\r\nline two" +
		"\r\n--" + DefaultBoundary + "\r\n\r\n\r\n--" + DefaultBoundary + "--")
	whole, err := parseChunks(t, boundary, [][]byte{input}, Limits{})
	if err != nil {
		t.Fatalf("parse whole input: %v", err)
	}

	for first := 1; first < len(input); first++ {
		for _, second := range []int{first + 1, first + 7, first + 31} {
			if second >= len(input) {
				continue
			}
			split, err := parseChunks(t, boundary, testutil.SplitAt(input, first, second), Limits{})
			if err != nil {
				t.Fatalf("split at %d,%d: %v", first, second, err)
			}
			if !slices.Equal(split, whole) {
				t.Fatalf("split at %d,%d:\n got %q\nwant %q", first, second, split, whole)
			}
		}
	}
}

func TestParserRandomSplits(t *testing.T) {
	boundary := MustBoundary("rnd")
	var message strings.Builder
	for index := range 20 {
		fmt.Fprintf(&message, "--rnd\r\nX-Index: %d\r\n\r\n", index)
		message.WriteString(strings.Repeat(fmt.Sprintf("payload %d -- rn\r\n-", index), index))
		message.WriteString("\r\n")
	}
	message.WriteString("--rnd--")
	input := []byte(message.String())

	whole, err := parseChunks(t, boundary, [][]byte{input}, Limits{})
	if err != nil {
		t.Fatalf("parse whole input: %v", err)
	}
	for seed := range uint64(50) {
		split, err := parseChunks(t, boundary, testutil.SplitRandom(input, 16, seed), Limits{})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !slices.Equal(split, whole) {
			t.Fatalf("seed %d: events differ from whole-input parse", seed)
		}
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limits  Limits
		want    error
		message string
	}{
		{"missing closing boundary", "--B\r\n\r\nbody\r\n", Limits{}, ErrMalformedMultipart, "No closing MIME boundary"},
		{"truncated closing boundary", "--B\r\n\r\nbody\r\n--B-", Limits{}, ErrMalformedMultipart, "No closing MIME boundary"},
		{"no delimiter at all", "just text", Limits{}, ErrMalformedMultipart, "No closing MIME boundary"},
		{"empty input", "", Limits{}, ErrMalformedMultipart, "No closing MIME boundary"},
		{"malformed closing boundary", "--B\r\n\r\nbody\r\n--B-x", Limits{}, ErrMalformedMultipart, "malformed boundary line"},
		{"padding then garbage", "--B\r\n\r\nbody\r\n--B  x\r\n", Limits{}, ErrMalformedMultipart, "malformed boundary line"},
		{"header without colon", "--B\r\nnot a header\r\n\r\n--B--", Limits{}, ErrMalformedHeader, "no colon"},
		{"header without name", "--B\r\n: value\r\n\r\n--B--", Limits{}, ErrMalformedHeader, "no name"},
		{"header line too long", "--B\r\nA: " + strings.Repeat("x", 100) + "\r\n\r\n--B--", Limits{MaxHeaderLine: 64}, ErrMalformedHeader, "header line exceeds"},
		{"header block too large", "--B\r\nA: 1234\r\nB: 1234\r\nC: 1234\r\n\r\n--B--", Limits{MaxHeaderBytes: 20}, ErrMalformedHeader, "header block exceeds"},
		{"too many headers", "--B\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n--B--", Limits{MaxHeaders: 2}, ErrMalformedHeader, "more than 2 header fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, size := range []int{0, 1, 3} {
				_, err := parseChunks(t, MustBoundary("B"), testutil.SplitEvery([]byte(tt.input), size), tt.limits)
				if !errors.Is(err, tt.want) {
					t.Fatalf("chunk size %d: error = %v, want %v", size, err, tt.want)
				}
				var parseError *ParseError
				if !errors.As(err, &parseError) {
					t.Fatalf("error %v is not a *ParseError", err)
				}
				if !strings.Contains(parseError.Message, tt.message) {
					t.Errorf("message = %q, want it to contain %q", parseError.Message, tt.message)
				}
			}
		})
	}
}

func TestParserErrorIsSticky(t *testing.T) {
	parser := NewParser(MustBoundary("B"), Limits{})
	parser.Offer([]byte("--B\r\nbad\r\n"))
	var first error
	for first == nil {
		var event Event
		event, first = parser.Next()
		if event.Kind == EventDataRequired {
			t.Fatal("parser asked for more data instead of failing")
		}
	}
	if _, err := parser.Next(); err != first {
		t.Errorf("second Next error = %v, want the same error %v", err, first)
	}
}

func TestParserStateAndOffset(t *testing.T) {
	parser := NewParser(MustBoundary("B"), Limits{})
	if parser.State() != StatePreamble {
		t.Fatalf("initial state = %v, want preamble", parser.State())
	}
	parser.Offer([]byte("xx\r\n--B\r\nA: 1\r\n"))

	expect := func(kind EventKind, state State) {
		t.Helper()
		event, err := parser.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if event.Kind != kind || parser.State() != state {
			t.Fatalf("got %v in state %v, want %v in state %v", event.Kind, parser.State(), kind, state)
		}
	}
	expect(EventStartPart, StateHeaders)
	if parser.Offset() != 9 {
		t.Errorf("Offset after delimiter line = %d, want 9", parser.Offset())
	}
	expect(EventHeader, StateHeaders)
	expect(EventDataRequired, StateHeaders)

	parser.Offer([]byte("\r\nabc\r\n--"))
	expect(EventEndHeaders, StateContent)
	expect(EventContent, StateBoundaryLine)
	expect(EventDataRequired, StateBoundaryLine)

	parser.Offer([]byte("B--trailing"))
	expect(EventEndPart, StateClosed)
	expect(EventEndMessage, StateClosed)
	if _, err := parser.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after end = %v, want io.EOF", err)
	}

	parser.Close()
	if err := parser.Offer([]byte("x")); err == nil {
		t.Error("Offer after Close should fail")
	}
}

func TestParserContentAliasesInput(t *testing.T) {
	parser := NewParser(MustBoundary("B"), Limits{})
	chunk := []byte("--B\r\n\r\nabcdef")
	parser.Offer(chunk)
	for {
		event, err := parser.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if event.Kind == EventContent {
			if &event.Data[0] != &chunk[7] {
				t.Error("content event does not alias the offered chunk")
			}
			return
		}
		if event.Kind == EventDataRequired {
			t.Fatal("no content event")
		}
	}
}

func TestParserRetainsOnlyDelimiterLookahead(t *testing.T) {
	parser := NewParser(MustBoundary("boundary"), Limits{})
	parser.Offer([]byte("--boundary\r\n\r\n"))
	emitted := 0
	drain := func() {
		for {
			event, err := parser.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if event.Kind == EventDataRequired {
				return
			}
			emitted += len(event.Data)
		}
	}
	drain()
	parser.Offer([]byte(strings.Repeat("a", 1000) + "\r\n--bound"))
	drain()
	if emitted != 1000 {
		t.Errorf("emitted %d content bytes before the candidate, want 1000", emitted)
	}
	if retained := len(parser.buffer.unread()); retained > len("--bound") {
		t.Errorf("retained %d bytes after the mark, want at most the candidate", retained)
	}
}
