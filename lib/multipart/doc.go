// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package multipart is a streaming codec for RFC 2046 multipart
// messages.
//
// The layers, from the bytes up:
//
//   - [Boundary] validates a boundary token, renders the "--token" and
//     "--token--" delimiters, and recognizes them in input.
//   - [Parser] is an incremental state machine. It is offered input in
//     chunks of any size, including chunks that split a delimiter, and
//     produces [Event] values: start of part, header fields, end of
//     headers, content, end of part, end of message. It keeps only
//     the bytes that could still begin a delimiter.
//   - An internal assembler folds events into parts, shared by the two
//     consumers below.
//   - [Decoder] is a demand-driven stage between a byte publisher (the
//     transport) and a part subscriber. Each [ReadablePart] exposes its
//     content as a nested stream.
//   - [PartReader] is the blocking equivalent over an io.Reader.
//   - [Encoder] turns a stream of [WritablePart] values into framed
//     bytes, converting each part's entity with an entity.Registry.
//
// A part's content must be consumed, cancelled or drained before the
// next part can be produced, because the message is parsed strictly in
// order. Both decoders drain unread content automatically: the Decoder
// when the subscriber requests another part while nobody subscribed to
// the current part's content (or its content subscriber cancelled),
// the PartReader on the next call to NextPart. With the Decoder,
// subscribe to a part's content from within OnNext, or request parts
// one at a time; otherwise outstanding part demand drains the content
// before a late subscriber arrives and it fails with
// [ErrContentConsumed].
//
// Input is lenient: a bare LF is accepted wherever CRLF is expected,
// and transport padding after a delimiter is skipped. Output uses CRLF
// except for the part terminator, which [WithPartTerminator] can
// change.
//
// Parse failures are [*ParseError] values unwrapping to
// [ErrMalformedMultipart] or [ErrMalformedHeader]. Upstream errors
// pass through the Decoder and Encoder unchanged.
package multipart
