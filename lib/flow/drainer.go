// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import "sync/atomic"

// Drainer serializes a delivery loop across goroutines and re-entrant
// calls. Run executes work on the calling goroutine unless another
// call is already executing it, in which case the running call repeats
// work once more before returning. Work must be idempotent with
// respect to spurious repeats: it inspects current state and does
// whatever is possible, returning when it cannot make progress.
//
// The zero value is ready to use.
type Drainer struct {
	pending atomic.Int32
}

// Run executes work, or schedules a repeat on the goroutine already
// running it.
func (d *Drainer) Run(work func()) {
	if d.pending.Add(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		work()
		missed = d.pending.Add(-missed)
		if missed == 0 {
			return
		}
	}
}
