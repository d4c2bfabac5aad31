// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// PartReader reads a multipart message from an io.Reader, one part at
// a time. It is the blocking counterpart of Decoder and shares its
// parser; it is not safe for concurrent use.
type PartReader struct {
	source    io.Reader
	assembler *assembler
	options   options
	logger    *slog.Logger

	current *readerBody
	err     error
	sawEOF  bool
}

// NewPartReader returns a reader for the message in source, delimited
// by boundary.
func NewPartReader(source io.Reader, boundary Boundary, options ...Option) *PartReader {
	return newPartReader(source, boundary, buildOptions(options))
}

func newPartReader(source io.Reader, boundary Boundary, resolved options) *PartReader {
	return &PartReader{
		source:    source,
		assembler: newAssembler(boundary, resolved.limits),
		options:   resolved,
		logger:    resolved.logger.With("boundary", boundary.Token()),
	}
}

// NextPart returns the next part. Unread content of the previous part
// is discarded first. After the closing delimiter NextPart returns
// io.EOF; a message that ends without one fails with
// ErrMalformedMultipart.
func (r *PartReader) NextPart() (*ReadablePart, error) {
	if r.current != nil {
		if err := r.current.discard(); err != nil {
			return nil, err
		}
		r.current = nil
	}
	for {
		if r.err != nil {
			return nil, r.err
		}
		next, err := r.assembler.next()
		if err != nil {
			r.err = err
			return nil, err
		}
		switch next.kind {
		case signalNeedData:
			r.fill()
		case signalPart:
			r.current = &readerBody{owner: r}
			r.logger.Debug("multipart part ready", "index", next.index, "headers", next.header.Len())
			return &ReadablePart{
				header:  next.header,
				index:   next.index,
				body:    r.current,
				options: r.options,
			}, nil
		case signalMessageEnd:
			r.err = io.EOF
		default:
			r.err = fmt.Errorf("multipart: unexpected signal %d between parts", next.kind)
		}
	}
}

// fill reads one chunk from source into the parser. Errors are
// recorded in r.err.
func (r *PartReader) fill() {
	if r.sawEOF {
		return
	}
	buffer := make([]byte, r.options.chunkSize)
	count, err := r.source.Read(buffer)
	if count > 0 {
		if offerErr := r.assembler.offer(buffer[:count:count]); offerErr != nil {
			r.err = offerErr
			return
		}
	}
	switch {
	case errors.Is(err, io.EOF):
		r.sawEOF = true
		r.assembler.close()
	case err != nil:
		r.err = fmt.Errorf("read multipart source: %w", err)
	}
}

// readerBody is the content of the current PartReader part.
type readerBody struct {
	owner   *PartReader
	pending []byte
	done    bool
	claimed atomic.Bool
}

func (b *readerBody) Read(p []byte) (int, error) {
	for len(b.pending) == 0 {
		if b.done {
			return 0, io.EOF
		}
		r := b.owner
		if r.err != nil {
			return 0, r.err
		}
		next, err := r.assembler.next()
		if err != nil {
			r.err = err
			return 0, err
		}
		switch next.kind {
		case signalNeedData:
			r.fill()
		case signalContent:
			b.pending = next.data
		case signalPartEnd:
			b.done = true
		default:
			r.err = fmt.Errorf("multipart: unexpected signal %d inside a part", next.kind)
		}
	}
	count := copy(p, b.pending)
	b.pending = b.pending[count:]
	return count, nil
}

// drain backs ReadablePart.Drain. A failure stays recorded on the
// owning PartReader and is returned by its next NextPart.
func (b *readerBody) drain() {
	_ = b.discard()
}

func (b *readerBody) discard() error {
	b.pending = nil
	for !b.done {
		if _, err := b.Read(nil); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		b.pending = nil
	}
	return nil
}

func (b *readerBody) publisher() flow.Publisher[[]byte] {
	if !b.claimed.CompareAndSwap(false, true) {
		return flow.Failed[[]byte](ErrConcurrentSubscription)
	}
	return flow.FromReader(io.NopCloser(b), b.owner.options.chunkSize)
}

func (b *readerBody) reader(ctx context.Context) io.ReadCloser {
	if !b.claimed.CompareAndSwap(false, true) {
		return errorReader{err: ErrConcurrentSubscription}
	}
	return contextReader{ctx: ctx, body: b}
}

type contextReader struct {
	ctx  context.Context
	body *readerBody
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.body.Read(p)
}

func (r contextReader) Close() error {
	return nil
}

type errorReader struct {
	err error
}

func (r errorReader) Read([]byte) (int, error) {
	return 0, r.err
}

func (r errorReader) Close() error {
	return nil
}

// Walk calls fn for every part of the message in source. Content fn
// leaves unread is discarded. Walk stops at the first error from fn,
// from parsing, or from ctx.
func Walk(ctx context.Context, source io.Reader, boundary Boundary, fn func(*ReadablePart) error, options ...Option) error {
	reader := NewPartReader(source, boundary, options...)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(part); err != nil {
			return err
		}
	}
}
