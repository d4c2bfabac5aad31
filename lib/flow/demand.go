// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"math"
	"sync/atomic"
)

// Unbounded is the demand value meaning "no limit". Once reached, the
// counter stays there: Take never decrements it.
const Unbounded int64 = math.MaxInt64

// Demand is a non-negative counter of items a subscriber has asked for
// but not yet received. Additions saturate at Unbounded instead of
// overflowing. The zero value is ready to use and safe for concurrent
// use.
type Demand struct {
	value atomic.Int64
}

// Add increases the demand by n and returns the new value. Non-positive
// n leaves the counter unchanged.
func (d *Demand) Add(n int64) int64 {
	for {
		current := d.value.Load()
		if n <= 0 || current == Unbounded {
			return current
		}
		next := current + n
		if next < current {
			next = Unbounded
		}
		if d.value.CompareAndSwap(current, next) {
			return next
		}
	}
}

// Take consumes one unit of demand. It returns false, leaving the
// counter at zero, when there is no demand.
func (d *Demand) Take() bool {
	for {
		current := d.value.Load()
		if current <= 0 {
			return false
		}
		if current == Unbounded {
			return true
		}
		if d.value.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// Load returns the current demand.
func (d *Demand) Load() int64 {
	return d.value.Load()
}

// Clear resets the demand to zero.
func (d *Demand) Clear() {
	d.value.Store(0)
}
