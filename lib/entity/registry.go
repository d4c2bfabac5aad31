// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package entity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// ErrUnsupportedEntity is returned when no registered converter
// accepts a value (or target) for the requested media type.
var ErrUnsupportedEntity = errors.New("unsupported entity")

// DefaultCharset is the charset assumed for text content that does not
// declare one.
const DefaultCharset = "utf-8"

// Writer serializes entity values into content bytes.
type Writer interface {
	// CanWrite reports whether the writer can serialize entity as
	// mediaType. A zero mediaType means the caller has no preference
	// and the writer picks its own default.
	CanWrite(entity any, mediaType MediaType) bool

	// Write produces the content. The returned Payload carries the
	// media type actually written.
	Write(ctx context.Context, entity any, mediaType MediaType) (Payload, error)
}

// Reader deserializes content bytes into a target.
type Reader interface {
	// CanRead reports whether the reader can decode mediaType content
	// into target (usually a pointer).
	CanRead(target any, mediaType MediaType) bool

	// Read consumes content and stores the result in target.
	Read(ctx context.Context, content io.Reader, target any, mediaType MediaType) error
}

// Payload is a writer's output.
type Payload struct {
	Content   flow.Publisher[[]byte]
	MediaType MediaType
}

// Registry selects converters for entity values. It is safe for
// concurrent use once configured; Register* calls must happen before
// the registry is shared.
type Registry struct {
	writers        []Writer
	readers        []Reader
	chunkSize      int
	defaultCharset string
}

// Option configures a Registry.
type Option func(*Registry)

// WithChunkSize sets the size of content chunks produced from
// in-memory payloads.
func WithChunkSize(size int) Option {
	return func(registry *Registry) {
		registry.chunkSize = size
	}
}

// WithDefaultCharset sets the charset used for text content without a
// charset parameter.
func WithDefaultCharset(charset string) Option {
	return func(registry *Registry) {
		registry.defaultCharset = charset
	}
}

// NewRegistry returns a registry with no converters.
func NewRegistry(options ...Option) *Registry {
	registry := &Registry{
		chunkSize:      flow.DefaultChunkSize,
		defaultCharset: DefaultCharset,
	}
	for _, option := range options {
		option(registry)
	}
	return registry
}

// NewDefaultRegistry returns a registry with the standard converters
// installed, in order: binary passthrough, text, JSON, CBOR, YAML.
func NewDefaultRegistry(options ...Option) *Registry {
	registry := NewRegistry(options...)
	binary := BinaryConverter{ChunkSize: registry.chunkSize}
	text := TextConverter{DefaultCharset: registry.defaultCharset, ChunkSize: registry.chunkSize}
	json := JSONConverter{ChunkSize: registry.chunkSize}
	cbor := CBORConverter{ChunkSize: registry.chunkSize}
	yaml := YAMLConverter{ChunkSize: registry.chunkSize}
	registry.writers = []Writer{binary, text, json, cbor, yaml}
	registry.readers = []Reader{binary, text, json, cbor, yaml}
	return registry
}

// ChunkSize returns the chunk size used for in-memory payloads.
func (r *Registry) ChunkSize() int {
	return r.chunkSize
}

// RegisterWriter adds writer ahead of every writer already registered.
func (r *Registry) RegisterWriter(writer Writer) {
	r.writers = append([]Writer{writer}, r.writers...)
}

// RegisterReader adds reader ahead of every reader already registered.
func (r *Registry) RegisterReader(reader Reader) {
	r.readers = append([]Reader{reader}, r.readers...)
}

// Writer returns the first writer accepting entity as mediaType.
func (r *Registry) Writer(entity any, mediaType MediaType) (Writer, error) {
	for _, writer := range r.writers {
		if writer.CanWrite(entity, mediaType) {
			return writer, nil
		}
	}
	return nil, fmt.Errorf("%w: no writer for %T as %q", ErrUnsupportedEntity, entity, mediaType.Type)
}

// Reader returns the first reader accepting target for mediaType.
func (r *Registry) Reader(target any, mediaType MediaType) (Reader, error) {
	for _, reader := range r.readers {
		if reader.CanRead(target, mediaType) {
			return reader, nil
		}
	}
	return nil, fmt.Errorf("%w: no reader for %T from %q", ErrUnsupportedEntity, target, mediaType.Type)
}

// MarshalOptions controls the transformations applied after a writer
// has produced the content.
type MarshalOptions struct {
	// Encoding compresses the content (Content-Encoding).
	Encoding ContentEncoding

	// Digest computes a Content-Digest over the transmitted bytes.
	Digest bool
}

// Marshalled is the content of one outbound part and the header values
// that describe it.
type Marshalled struct {
	Content   flow.Publisher[[]byte]
	MediaType MediaType

	// Encoding is set when a non-identity Content-Encoding was applied.
	Encoding ContentEncoding

	// Digest is the Content-Digest header value, when requested.
	Digest string
}

// Marshal selects a writer and produces the content of entity.
// Encoding and digest require the whole content, so when either is
// requested the writer's output is buffered in memory.
func (r *Registry) Marshal(ctx context.Context, entity any, mediaType MediaType, options MarshalOptions) (Marshalled, error) {
	writer, err := r.Writer(entity, mediaType)
	if err != nil {
		return Marshalled{}, err
	}
	payload, err := writer.Write(ctx, entity, mediaType)
	if err != nil {
		return Marshalled{}, fmt.Errorf("write %T: %w", entity, err)
	}
	result := Marshalled{Content: payload.Content, MediaType: payload.MediaType}

	identity := options.Encoding == "" || options.Encoding == EncodingIdentity
	if identity && !options.Digest {
		return result, nil
	}

	data, err := flow.CollectBytes(ctx, payload.Content)
	if err != nil {
		return Marshalled{}, fmt.Errorf("buffer %T content: %w", entity, err)
	}
	if !identity {
		data, err = EncodeContent(data, options.Encoding)
		if err != nil {
			return Marshalled{}, err
		}
		result.Encoding = options.Encoding
	}
	if options.Digest {
		result.Digest = FormatDigest(data)
	}
	result.Content = flow.FromBytes(data, r.chunkSize)
	return result, nil
}

// UnmarshalOptions describes how inbound content was transformed.
type UnmarshalOptions struct {
	// Encoding is the part's Content-Encoding.
	Encoding ContentEncoding

	// Digest is the part's Content-Digest header value. When set, the
	// content is verified and a mismatch fails with ErrDigestMismatch.
	Digest string
}

// Unmarshal selects a reader for target and decodes content into it.
func (r *Registry) Unmarshal(ctx context.Context, content io.Reader, mediaType MediaType, options UnmarshalOptions, target any) error {
	reader, err := r.Reader(target, mediaType)
	if err != nil {
		return err
	}

	var verifier *DigestVerifier
	if options.Digest != "" {
		verifier, err = NewDigestVerifier(content, options.Digest)
		if err != nil {
			return err
		}
		content = verifier
	}

	decoded, err := DecodeContent(content, options.Encoding)
	if err != nil {
		return err
	}
	defer decoded.Close()

	if err := reader.Read(ctx, decoded, target, mediaType); err != nil {
		return fmt.Errorf("read %T: %w", target, err)
	}

	if verifier != nil {
		// The reader may stop before the end of the raw stream (e.g.
		// a decompressor that saw the end of its frame).
		if _, err := io.Copy(io.Discard, verifier); err != nil {
			return err
		}
	}
	return nil
}
