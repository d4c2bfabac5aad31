// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"sync/atomic"
)

var tokenSequence atomic.Uint64

// UniqueToken returns prefix followed by "=_" and a sequence number
// that is never reused within the test binary. The result is a valid
// boundary token as long as prefix is short and has no line breaks.
//
//	boundary := multipart.MustBoundary(testutil.UniqueToken("join")) // "join=_1"
func UniqueToken(prefix string) string {
	return prefix + "=_" + strconv.FormatUint(tokenSequence.Add(1), 10)
}
