// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand/v2"
	"slices"
)

// SplitEvery cuts data into chunks of size bytes (the last may be
// shorter). Each chunk is a fresh copy. A non-positive size yields one
// chunk.
func SplitEvery(data []byte, size int) [][]byte {
	if size <= 0 {
		size = len(data)
	}
	var chunks [][]byte
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunks = append(chunks, slices.Clone(data[start:end]))
	}
	return chunks
}

// SplitAt cuts data at the given offsets, which must be ascending and
// within data. Each chunk is a fresh copy; empty chunks are omitted.
func SplitAt(data []byte, offsets ...int) [][]byte {
	var chunks [][]byte
	start := 0
	for _, offset := range append(slices.Clone(offsets), len(data)) {
		if offset > start {
			chunks = append(chunks, slices.Clone(data[start:offset]))
			start = offset
		}
	}
	return chunks
}

// SplitRandom cuts data into chunks of 1 to maxSize bytes with lengths
// drawn from a generator seeded with seed, so a failing split can be
// reproduced from the seed alone.
func SplitRandom(data []byte, maxSize int, seed uint64) [][]byte {
	if maxSize <= 0 {
		maxSize = 1
	}
	random := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var chunks [][]byte
	for start := 0; start < len(data); {
		end := min(start+1+random.IntN(maxSize), len(data))
		chunks = append(chunks, slices.Clone(data[start:end]))
		start = end
	}
	return chunks
}
