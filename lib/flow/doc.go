// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package flow provides demand-driven streams: a producer emits items
// only after its consumer has asked for them.
//
// The contract has three parties. A [Publisher] accepts a [Subscriber]
// and hands it a [Subscription] through OnSubscribe. The subscriber
// calls Request(n) to signal that it can take n more items, and Cancel
// to stop the stream. The publisher then calls OnNext at most n times,
// followed by at most one terminal signal (OnComplete or OnError).
// Terminal signals do not require demand.
//
// Signals to one subscriber are never concurrent. Implementations in
// this module serialize their work with a [Drainer]: whichever
// goroutine first raises a signal runs the delivery loop, and signals
// raised meanwhile (including re-entrant calls from inside OnNext)
// are folded into that loop instead of recursing.
//
// Byte publishers transfer ownership of every delivered slice. Neither
// side writes to a slice after it has been passed to OnNext, so
// consumers may retain delivered chunks without copying.
//
// Bridges to blocking Go code:
//
//	reader := flow.NewReader(ctx, publisher)   // Publisher[[]byte] → io.Reader
//	source := flow.FromReader(file, 32*1024)   // io.Reader → Publisher[[]byte]
//	items, err := flow.Collect(ctx, publisher) // drain into a slice
package flow
