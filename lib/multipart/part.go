// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// partBody is the content source behind a ReadablePart. Decoder parts
// are backed by a nested stream, PartReader parts by a blocking reader.
type partBody interface {
	publisher() flow.Publisher[[]byte]
	reader(ctx context.Context) io.ReadCloser
	drain()
}

// ReadablePart is one inbound part: its header block and its content,
// which can be consumed exactly once through Content, Reader or As.
// The part's content must be consumed, drained or abandoned before the
// next part is produced; Decoder and PartReader drain unread content
// automatically when the consumer asks for the next part.
type ReadablePart struct {
	header  *Header
	index   int
	body    partBody
	options options
}

// Header returns the part's header fields.
func (p *ReadablePart) Header() *Header {
	return p.header
}

// Index returns the part's zero-based position in its message.
func (p *ReadablePart) Index() int {
	return p.index
}

// ContentType returns the parsed Content-Type header. A part without
// one is text/plain; an unparseable value is application/octet-stream.
func (p *ReadablePart) ContentType() entity.MediaType {
	value := p.header.Get("Content-Type")
	if strings.TrimSpace(value) == "" {
		return entity.MediaType{Type: entity.TextPlain}
	}
	mediaType, err := entity.ParseMediaType(value)
	if err != nil {
		return entity.MediaType{Type: entity.OctetStream}
	}
	return mediaType
}

// Name returns the name parameter of Content-Disposition, or "".
func (p *ReadablePart) Name() string {
	return p.dispositionParam("name")
}

// Filename returns the base name of the filename parameter of
// Content-Disposition, or "". Directory components are dropped.
func (p *ReadablePart) Filename() string {
	filename := p.dispositionParam("filename")
	if filename == "" {
		return ""
	}
	return filepath.Base(filename)
}

func (p *ReadablePart) dispositionParam(name string) string {
	value := p.header.Get("Content-Disposition")
	if value == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return params[name]
}

// Content returns the part's content as a single-subscriber stream.
// Chunks delivered to the subscriber are owned by it.
func (p *ReadablePart) Content() flow.Publisher[[]byte] {
	return p.body.publisher()
}

// Reader returns a blocking reader over the part's content. It counts
// as the content's one subscription.
func (p *ReadablePart) Reader(ctx context.Context) io.ReadCloser {
	return p.body.reader(ctx)
}

// Drain discards whatever content has not been read.
func (p *ReadablePart) Drain() {
	p.body.drain()
}

// As converts the content into target through the entity registry,
// honoring the part's Content-Type, Content-Encoding and
// Content-Digest headers.
func (p *ReadablePart) As(ctx context.Context, target any) error {
	encoding, err := entity.ParseContentEncoding(p.header.Get("Content-Encoding"))
	if err != nil {
		return err
	}
	reader := p.Reader(ctx)
	defer reader.Close()
	return p.options.registry.Unmarshal(ctx, reader, p.ContentType(), entity.UnmarshalOptions{
		Encoding: encoding,
		Digest:   p.header.Get("Content-Digest"),
	}, target)
}

// Multipart opens the content of a multipart/* part as a nested
// message, using the boundary from its Content-Type.
func (p *ReadablePart) Multipart(ctx context.Context) (*PartReader, error) {
	boundary, err := BoundaryFromContentType(p.header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("part %d: %w", p.index, err)
	}
	return newPartReader(p.Reader(ctx), boundary, p.options), nil
}

// WritablePart is one outbound part: header fields and an entity value
// that the Encoder converts to content through its registry.
type WritablePart struct {
	header      *Header
	entity      any
	contentType string
	encoding    entity.ContentEncoding
	digest      bool

	name     string
	filename string
}

// PartOption configures a WritablePart.
type PartOption func(*WritablePart)

// NewWritablePart returns a part carrying value.
func NewWritablePart(value any, options ...PartOption) *WritablePart {
	part := &WritablePart{header: NewHeader(), entity: value}
	for _, option := range options {
		option(part)
	}
	if part.name != "" || part.filename != "" {
		params := map[string]string{}
		if part.name != "" {
			params["name"] = part.name
		}
		if part.filename != "" {
			params["filename"] = part.filename
		}
		part.header.Set("Content-Disposition", mime.FormatMediaType("form-data", params))
	}
	return part
}

// WithHeader adds a header field.
func WithHeader(name, value string) PartOption {
	return func(part *WritablePart) {
		part.header.Add(name, value)
	}
}

// WithContentType sets the Content-Type header, which also selects the
// writer that produces the content.
func WithContentType(contentType string) PartOption {
	return func(part *WritablePart) {
		part.contentType = contentType
		part.header.Set("Content-Type", contentType)
	}
}

// WithName sets the form field name in Content-Disposition.
func WithName(name string) PartOption {
	return func(part *WritablePart) {
		part.name = name
	}
}

// WithFilename sets the filename in Content-Disposition.
func WithFilename(filename string) PartOption {
	return func(part *WritablePart) {
		part.filename = filename
	}
}

// WithContentEncoding compresses the content and sets
// Content-Encoding.
func WithContentEncoding(encoding entity.ContentEncoding) PartOption {
	return func(part *WritablePart) {
		part.encoding = encoding
	}
}

// WithDigest adds a BLAKE3 Content-Digest over the transmitted bytes.
func WithDigest() PartOption {
	return func(part *WritablePart) {
		part.digest = true
	}
}

// Header returns the part's header fields.
func (p *WritablePart) Header() *Header {
	return p.header
}

// Entity returns the value the part carries.
func (p *WritablePart) Entity() any {
	return p.entity
}

// mediaType returns the media type used to select a writer: the
// explicit content type, else the Content-Type header.
func (p *WritablePart) mediaType() (entity.MediaType, error) {
	value := p.contentType
	if value == "" {
		value = p.header.Get("Content-Type")
	}
	return entity.ParseMediaType(value)
}
