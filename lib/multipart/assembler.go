// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"errors"
	"fmt"
	"io"
)

type signalKind int

const (
	signalNeedData signalKind = iota + 1
	signalPart
	signalContent
	signalPartEnd
	signalMessageEnd
)

// signal is the assembler's view of the parser events that matter to
// a consumer of whole parts.
type signal struct {
	kind   signalKind
	header *Header
	index  int
	data   []byte
}

// assembler folds parser events into parts: header events accumulate
// until the header block ends, content is handed through as-is.
type assembler struct {
	parser *Parser
	limits Limits
	header *Header
	parts  int
	ended  bool
}

func newAssembler(boundary Boundary, limits Limits) *assembler {
	limits = limits.withDefaults()
	return &assembler{parser: NewParser(boundary, limits), limits: limits}
}

func (a *assembler) offer(data []byte) error {
	return a.parser.Offer(data)
}

func (a *assembler) close() {
	a.parser.Close()
}

// next returns the next signal. After signalMessageEnd it keeps
// returning signalMessageEnd.
func (a *assembler) next() (signal, error) {
	if a.ended {
		return signal{kind: signalMessageEnd}, nil
	}
	for {
		event, err := a.parser.Next()
		if errors.Is(err, io.EOF) {
			a.ended = true
			return signal{kind: signalMessageEnd}, nil
		}
		if err != nil {
			return signal{}, err
		}

		switch event.Kind {
		case EventDataRequired:
			return signal{kind: signalNeedData}, nil
		case EventStartPart:
			if a.limits.MaxParts > 0 && a.parts >= a.limits.MaxParts {
				return signal{}, &ParseError{
					Kind:    ErrMalformedMultipart,
					Offset:  a.parser.Offset(),
					Message: fmt.Sprintf("more than %d parts", a.limits.MaxParts),
				}
			}
			a.header = NewHeader()
		case EventHeader:
			a.header.Add(event.Name, event.Value)
		case EventEndHeaders:
			index := a.parts
			a.parts++
			return signal{kind: signalPart, header: a.header, index: index}, nil
		case EventContent:
			return signal{kind: signalContent, data: event.Data}, nil
		case EventEndPart:
			a.header = nil
			return signal{kind: signalPartEnd}, nil
		case EventEndMessage:
			a.ended = true
			return signal{kind: signalMessageEnd}, nil
		}
	}
}
