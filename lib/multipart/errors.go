// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
)

var (
	// ErrMalformedMultipart reports structurally invalid framing: a
	// stream that ends without its closing delimiter, a truncated or
	// malformed delimiter line, or too many parts.
	ErrMalformedMultipart = errors.New("malformed multipart")

	// ErrMalformedHeader reports a header line without a colon, or a
	// header line or block over the configured limits.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMissingBoundary reports a multipart Content-Type without a
	// boundary parameter.
	ErrMissingBoundary = errors.New("missing multipart boundary")

	// ErrContentConsumed is signalled to a content subscriber that
	// arrives after the part's content was drained or already read.
	ErrContentConsumed = errors.New("part content already consumed")

	// ErrCancelled is signalled to an open content subscriber when the
	// part stream it belongs to is cancelled.
	ErrCancelled = errors.New("multipart stream cancelled")

	// ErrUnsupportedEntity is the entity registry's error for values
	// and targets no converter accepts.
	ErrUnsupportedEntity = entity.ErrUnsupportedEntity

	// ErrConcurrentSubscription is signalled when a single-subscriber
	// stage is subscribed twice.
	ErrConcurrentSubscription = flow.ErrConcurrentSubscription
)

// ParseError is a framing or header failure at a known input offset.
// It unwraps to its Kind (ErrMalformedMultipart or ErrMalformedHeader).
type ParseError struct {
	Kind    error
	Offset  int64
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}
