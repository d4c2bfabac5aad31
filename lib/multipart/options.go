// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"io"
	"log/slog"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// Option configures a Decoder, PartReader or Encoder. Options that do
// not apply to a component are ignored by it.
type Option func(*options)

type options struct {
	registry   *entity.Registry
	limits     Limits
	logger     *slog.Logger
	subtype    string
	terminator string
	chunkSize  int
}

func buildOptions(list []Option) options {
	resolved := options{
		limits:     DefaultLimits(),
		subtype:    "form-data",
		terminator: "\r\n",
		chunkSize:  flow.DefaultChunkSize,
	}
	for _, option := range list {
		option(&resolved)
	}
	if resolved.registry == nil {
		resolved.registry = entity.NewDefaultRegistry(entity.WithChunkSize(resolved.chunkSize))
	}
	if resolved.logger == nil {
		resolved.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	resolved.limits = resolved.limits.withDefaults()
	return resolved
}

// WithRegistry sets the entity registry used to convert part content.
// The default is entity.NewDefaultRegistry.
func WithRegistry(registry *entity.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithLimits sets the parser limits.
func WithLimits(limits Limits) Option {
	return func(o *options) {
		o.limits = limits
	}
}

// WithLogger sets the logger for stream lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSubtype sets the multipart subtype the Encoder reports in its
// content type. The default is "form-data".
func WithSubtype(subtype string) Option {
	return func(o *options) {
		o.subtype = subtype
	}
}

// WithPartTerminator sets the bytes the Encoder writes after each
// part's content, before the next delimiter. The default is CRLF. A
// bare "\n" is read back correctly by this package's decoders but not
// by strict RFC 2046 parsers.
func WithPartTerminator(terminator string) Option {
	return func(o *options) {
		o.terminator = terminator
	}
}

// WithChunkSize sets the read size of a PartReader and the chunk size
// of the default registry.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}
