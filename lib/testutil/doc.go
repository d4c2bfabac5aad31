// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for mpcodec packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] bound every
// wait on a channel with a timer, so a stream that stalls fails the
// test with a named event instead of hanging it.
//
// [SplitEvery], [SplitAt], and [SplitRandom] cut a message into chunks
// for feeding incremental parsers. Chunks are fresh copies, so a
// consumer that takes ownership of them cannot disturb the original.
//
// [UniqueToken] generates never-repeating boundary tokens for tests
// that must not share one.
//
// The Require helpers call t.Fatalf on failure rather than returning
// errors.
//
// This package has no mpcodec-internal dependencies.
package testutil
