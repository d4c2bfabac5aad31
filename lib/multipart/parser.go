// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// EventKind identifies a parser event.
type EventKind int

const (
	// EventStartPart opens a part after a delimiter line.
	EventStartPart EventKind = iota + 1

	// EventHeader carries one header field in Name and Value.
	EventHeader

	// EventEndHeaders closes the header block. Content events follow.
	EventEndHeaders

	// EventContent carries part content bytes in Data.
	EventContent

	// EventEndPart closes the current part.
	EventEndPart

	// EventEndMessage follows the closing delimiter. Next returns io.EOF
	// afterwards.
	EventEndMessage

	// EventDataRequired means no event can be produced until more input
	// is offered (or the parser is closed).
	EventDataRequired
)

func (k EventKind) String() string {
	switch k {
	case EventStartPart:
		return "start-part"
	case EventHeader:
		return "header"
	case EventEndHeaders:
		return "end-headers"
	case EventContent:
		return "content"
	case EventEndPart:
		return "end-part"
	case EventEndMessage:
		return "end-message"
	case EventDataRequired:
		return "data-required"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one structural event of a multipart message.
type Event struct {
	Kind EventKind

	// Name and Value are set for EventHeader.
	Name  string
	Value string

	// Data is set for EventContent. It aliases input the parser
	// was offered; the parser never modifies it.
	Data []byte

	// Last is set on EventContent when the parser already knows that
	// EventEndPart follows. EventEndPart is authoritative either way.
	Last bool
}

// State is the parser's position in the message grammar.
type State int

const (
	// StatePreamble is before the first delimiter line.
	StatePreamble State = iota + 1

	// StateBoundaryLine is at a candidate delimiter line that cannot be
	// classified yet.
	StateBoundaryLine

	// StateHeaders is inside a part's header block.
	StateHeaders

	// StateContent is inside a part's content.
	StateContent

	// StateClosed follows the closing delimiter. It is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePreamble:
		return "preamble"
	case StateBoundaryLine:
		return "boundary-line"
	case StateHeaders:
		return "headers"
	case StateContent:
		return "content"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Limits bounds the resources a parser spends on hostile input. Zero
// fields take the defaults.
type Limits struct {
	// MaxHeaderLine is the longest header line, line break included.
	MaxHeaderLine int `yaml:"max_header_line" json:"max_header_line"`

	// MaxHeaderBytes bounds one part's header block.
	MaxHeaderBytes int `yaml:"max_header_bytes" json:"max_header_bytes"`

	// MaxHeaders bounds the header fields of one part.
	MaxHeaders int `yaml:"max_headers" json:"max_headers"`

	// MaxParts bounds the parts of one message. Negative means no
	// limit.
	MaxParts int `yaml:"max_parts" json:"max_parts"`
}

// Default limits.
const (
	DefaultMaxHeaderLine  = 8 * 1024
	DefaultMaxHeaderBytes = 64 * 1024
	DefaultMaxHeaders     = 128
	DefaultMaxParts       = 10000
)

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderLine:  DefaultMaxHeaderLine,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxHeaders:     DefaultMaxHeaders,
		MaxParts:       DefaultMaxParts,
	}
}

func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.MaxHeaderLine <= 0 {
		l.MaxHeaderLine = defaults.MaxHeaderLine
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = defaults.MaxHeaderBytes
	}
	if l.MaxHeaders <= 0 {
		l.MaxHeaders = defaults.MaxHeaders
	}
	if l.MaxParts == 0 {
		l.MaxParts = defaults.MaxParts
	}
	return l
}

// errOfferAfterClose is returned by Offer once Close has been called.
var errOfferAfterClose = errors.New("multipart: offer after close")

// Parser is an incremental multipart parser. Input arrives through
// Offer in chunks of any size; Next turns the buffered input into
// events, returning EventDataRequired when it needs more. The parser
// retains only the bytes that could still begin a delimiter (plus an
// incomplete header line), so memory stays bounded by the largest
// chunk offered.
//
// Delimiters are recognized after CRLF or a bare LF. A Parser is not
// safe for concurrent use.
type Parser struct {
	boundary Boundary
	limits   Limits
	buffer   chunkBuffer
	state    State

	// pending holds events decided together with an earlier one.
	pending []Event

	inputClosed bool
	err         error
	finished    bool

	// lineStart is set in the preamble when the cursor is at the
	// start of a line.
	lineStart bool

	// fromPreamble is set while a boundary line candidate was found in
	// the preamble rather than after content.
	fromPreamble bool

	// lineBreak is the length of the line break consumed before a
	// content delimiter candidate (0 at the start of content).
	lineBreak int

	// settled is the number of bytes at the cursor already known to be
	// content: a line break that did not precede a delimiter.
	settled int

	contentStart bool
	firstLine    bool
	headerBytes  int
	headerCount  int
}

// NewParser returns a parser for messages delimited by boundary.
func NewParser(boundary Boundary, limits Limits) *Parser {
	return &Parser{
		boundary:  boundary,
		limits:    limits.withDefaults(),
		buffer:    newChunkBuffer(),
		state:     StatePreamble,
		lineStart: true,
	}
}

// Offer appends data to the input. The parser takes ownership of data
// and content events may alias it; the caller must not modify it
// afterwards. Offer fails after Close.
func (p *Parser) Offer(data []byte) error {
	if p.inputClosed {
		return errOfferAfterClose
	}
	if p.state == StateClosed {
		return nil
	}
	p.buffer.append(data)
	return nil
}

// Close marks the end of input. Buffered bytes are still parsed; once
// they run out before the closing delimiter, Next fails with
// ErrMalformedMultipart.
func (p *Parser) Close() {
	p.inputClosed = true
}

// State returns the current parser state.
func (p *Parser) State() State {
	return p.state
}

// Offset returns the absolute input offset of the next unparsed byte.
func (p *Parser) Offset() int64 {
	return p.buffer.offset()
}

// Next returns the next event. It returns EventDataRequired when the
// buffered input is exhausted, io.EOF after EventEndMessage, and a
// *ParseError for invalid input. Errors are sticky.
func (p *Parser) Next() (Event, error) {
	if p.err != nil {
		return Event{}, p.err
	}
	if len(p.pending) > 0 {
		event := p.pending[0]
		p.pending = p.pending[1:]
		return event, nil
	}
	if p.finished {
		p.buffer.discard()
		return Event{}, io.EOF
	}

	for {
		var event Event
		var err error
		switch p.state {
		case StatePreamble:
			event, err = p.scanPreamble()
		case StateBoundaryLine:
			event, err = p.scanBoundaryLine()
		case StateHeaders:
			event, err = p.scanHeaders()
		case StateContent:
			event, err = p.scanContent()
		case StateClosed:
			p.finished = true
			p.buffer.discard()
			return Event{Kind: EventEndMessage}, nil
		}
		if err != nil {
			p.err = err
			return Event{}, err
		}
		if event.Kind == 0 {
			continue
		}
		if event.Kind == EventDataRequired && p.inputClosed {
			p.err = p.fail(ErrMalformedMultipart, "No closing MIME boundary")
			return Event{}, p.err
		}
		return event, nil
	}
}

func (p *Parser) fail(kind error, message string) error {
	return &ParseError{Kind: kind, Offset: p.buffer.offset(), Message: message}
}

func (p *Parser) scanPreamble() (Event, error) {
	data := p.buffer.unread()
	if p.lineStart {
		kind, _ := p.boundary.matchDelimiter(data)
		if kind != delimiterNone && kind != delimiterMalformed {
			p.state = StateBoundaryLine
			p.fromPreamble = true
			return Event{}, nil
		}
		p.lineStart = false
	}
	index := bytes.IndexByte(data, '\n')
	if index < 0 {
		p.buffer.discard()
		return Event{Kind: EventDataRequired}, nil
	}
	p.buffer.advance(index + 1)
	p.lineStart = true
	return Event{}, nil
}

func (p *Parser) scanBoundaryLine() (Event, error) {
	kind, length := p.boundary.matchDelimiter(p.buffer.unread())
	switch kind {
	case delimiterNeedMore:
		return Event{Kind: EventDataRequired}, nil

	case delimiterNone, delimiterMalformed:
		if p.fromPreamble {
			p.fromPreamble = false
			p.lineStart = false
			p.state = StatePreamble
			return Event{}, nil
		}
		if kind == delimiterMalformed {
			return Event{}, p.fail(ErrMalformedMultipart, "malformed boundary line")
		}
		// Not a delimiter: the line break is content, and scanning
		// resumes after it.
		p.buffer.reset()
		p.state = StateContent
		p.settled = p.lineBreak
		return Event{}, nil

	case delimiterPart:
		p.buffer.unmark()
		p.buffer.advance(length)
		p.state = StateHeaders
		p.firstLine = true
		p.headerBytes = 0
		p.headerCount = 0
		if p.fromPreamble {
			p.fromPreamble = false
			return Event{Kind: EventStartPart}, nil
		}
		p.pending = append(p.pending, Event{Kind: EventStartPart})
		return Event{Kind: EventEndPart}, nil

	default: // delimiterClose
		p.buffer.unmark()
		p.buffer.advance(length)
		p.state = StateClosed
		if p.fromPreamble {
			p.fromPreamble = false
			return Event{}, nil
		}
		return Event{Kind: EventEndPart}, nil
	}
}

func (p *Parser) scanHeaders() (Event, error) {
	data := p.buffer.unread()

	if p.firstLine {
		// A delimiter straight after the delimiter line is a part with
		// neither headers nor content.
		kind, length := p.boundary.matchDelimiter(data)
		switch kind {
		case delimiterNeedMore:
			return Event{Kind: EventDataRequired}, nil
		case delimiterMalformed:
			return Event{}, p.fail(ErrMalformedMultipart, "malformed boundary line")
		case delimiterPart:
			p.buffer.advance(length)
			p.pending = append(p.pending, Event{Kind: EventEndPart}, Event{Kind: EventStartPart})
			p.headerBytes = 0
			p.headerCount = 0
			return Event{Kind: EventEndHeaders}, nil
		case delimiterClose:
			p.buffer.advance(length)
			p.state = StateClosed
			p.pending = append(p.pending, Event{Kind: EventEndPart})
			return Event{Kind: EventEndHeaders}, nil
		}
	}

	index := bytes.IndexByte(data, '\n')
	if index < 0 {
		if len(data) >= p.limits.MaxHeaderLine {
			return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("header line exceeds %d bytes", p.limits.MaxHeaderLine))
		}
		return Event{Kind: EventDataRequired}, nil
	}
	if index+1 > p.limits.MaxHeaderLine {
		return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("header line exceeds %d bytes", p.limits.MaxHeaderLine))
	}
	p.headerBytes += index + 1
	if p.headerBytes > p.limits.MaxHeaderBytes {
		return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("header block exceeds %d bytes", p.limits.MaxHeaderBytes))
	}

	line := data[:index]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if len(line) == 0 {
		p.buffer.advance(index + 1)
		p.firstLine = false
		p.state = StateContent
		p.contentStart = true
		p.settled = 0
		return Event{Kind: EventEndHeaders}, nil
	}

	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("header line %q has no colon", truncate(line, 64)))
	}
	name := bytes.TrimSpace(line[:colon])
	if len(name) == 0 {
		return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("header line %q has no name", truncate(line, 64)))
	}
	p.headerCount++
	if p.headerCount > p.limits.MaxHeaders {
		return Event{}, p.fail(ErrMalformedHeader, fmt.Sprintf("more than %d header fields", p.limits.MaxHeaders))
	}

	p.buffer.advance(index + 1)
	p.firstLine = false
	return Event{
		Kind:  EventHeader,
		Name:  string(name),
		Value: string(bytes.TrimSpace(line[colon+1:])),
	}, nil
}

func (p *Parser) scanContent() (Event, error) {
	data := p.buffer.unread()
	delimiter := p.boundary.delimiter

	if p.contentStart && p.settled == 0 {
		p.contentStart = false
		if hasPartialPrefix(data, delimiter) {
			p.buffer.mark()
			p.lineBreak = 0
			p.state = StateBoundaryLine
			return Event{}, nil
		}
	}
	p.contentStart = false

	candidate := findCandidate(data, p.settled, delimiter)
	if candidate < 0 {
		// A trailing CR may begin the CRLF before a delimiter.
		end := len(data)
		if end > p.settled && data[end-1] == '\r' {
			end--
		}
		if end == 0 {
			return Event{Kind: EventDataRequired}, nil
		}
		p.buffer.advance(end)
		p.settled = 0
		return Event{Kind: EventContent, Data: data[:end]}, nil
	}

	lineBreakStart := candidate
	if candidate > p.settled && data[candidate-1] == '\r' {
		lineBreakStart = candidate - 1
	}
	content := data[:lineBreakStart]
	p.buffer.advance(lineBreakStart)
	p.buffer.mark()
	p.lineBreak = candidate + 1 - lineBreakStart
	p.buffer.advance(p.lineBreak)
	p.state = StateBoundaryLine
	p.settled = 0

	if len(content) == 0 {
		return Event{}, nil
	}
	kind, _ := p.boundary.matchDelimiter(p.buffer.unread())
	return Event{
		Kind: EventContent,
		Data: content,
		Last: kind == delimiterPart || kind == delimiterClose,
	}, nil
}

// findCandidate returns the index of the first LF at or after from that
// is followed by the delimiter, or by a proper prefix of it that runs
// to the end of data. It returns -1 if there is none.
func findCandidate(data []byte, from int, delimiter []byte) int {
	for position := from; position < len(data); {
		index := bytes.IndexByte(data[position:], '\n')
		if index < 0 {
			return -1
		}
		position += index
		if hasPartialPrefix(data[position+1:], delimiter) {
			return position
		}
		position++
	}
	return -1
}

// hasPartialPrefix reports whether data starts with delimiter or is a
// prefix of it.
func hasPartialPrefix(data, delimiter []byte) bool {
	length := min(len(data), len(delimiter))
	return bytes.Equal(data[:length], delimiter[:length])
}

func truncate(line []byte, limit int) []byte {
	if len(line) > limit {
		return line[:limit]
	}
	return line
}
