// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

// chunkBuffer holds the unconsumed input bytes and a read cursor.
//
// Bytes are never written after they have been appended: a chunk is
// adopted as-is when nothing is left over, and leftovers are combined
// with the next chunk in a fresh allocation. Slices handed out by
// unread therefore stay valid and unchanged for as long as the caller
// holds them, which lets content events alias the buffer.
type chunkBuffer struct {
	data   []byte
	cursor int

	// base is the absolute input offset of data[0].
	base int64

	// marked is the cursor position saved by mark, or -1.
	marked int
}

func newChunkBuffer() chunkBuffer {
	return chunkBuffer{marked: -1}
}

// append commits the consumed bytes and adds chunk. The buffer takes
// ownership of chunk: the caller must not modify it afterwards. A
// pending mark survives the commit.
func (b *chunkBuffer) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	keep := b.cursor
	if b.marked >= 0 {
		keep = b.marked
	}
	rest := b.data[keep:]
	b.base += int64(keep)
	b.cursor -= keep
	if b.marked >= 0 {
		b.marked = 0
	}

	if len(rest) == 0 {
		b.data = chunk
		return
	}
	combined := make([]byte, len(rest)+len(chunk))
	copy(combined, rest)
	copy(combined[len(rest):], chunk)
	b.data = combined
}

// unread returns the bytes after the cursor.
func (b *chunkBuffer) unread() []byte {
	return b.data[b.cursor:]
}

// advance moves the cursor forward by n bytes.
func (b *chunkBuffer) advance(n int) {
	b.cursor += n
}

// discard consumes every buffered byte.
func (b *chunkBuffer) discard() {
	b.cursor = len(b.data)
}

// offset returns the absolute input offset of the cursor.
func (b *chunkBuffer) offset() int64 {
	return b.base + int64(b.cursor)
}

// mark remembers the cursor so that reset can return to it after a
// delimiter candidate turns out not to be one.
func (b *chunkBuffer) mark() {
	b.marked = b.cursor
}

// reset moves the cursor back to the mark and clears it.
func (b *chunkBuffer) reset() {
	if b.marked >= 0 {
		b.cursor = b.marked
		b.marked = -1
	}
}

// unmark clears the mark without moving the cursor.
func (b *chunkBuffer) unmark() {
	b.marked = -1
}
