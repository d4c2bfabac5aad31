// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// DefaultChunkSize is the read size used by FromReader when the caller
// passes a non-positive chunk size.
const DefaultChunkSize = 32 * 1024

// Generate returns a publisher that calls next once per requested item.
// next returns io.EOF to complete the stream and any other error to
// fail it. Every subscriber gets its own next function from factory,
// so the publisher may be subscribed more than once.
func Generate[T any](factory func() func() (T, error)) Publisher[T] {
	return generator[T]{factory: factory}
}

type generator[T any] struct {
	factory func() func() (T, error)
}

func (g generator[T]) Subscribe(subscriber Subscriber[T]) {
	subscribePull(subscriber, g.factory(), nil)
}

// FromSlice returns a publisher emitting items in order. Each
// subscriber receives the full slice.
func FromSlice[T any](items []T) Publisher[T] {
	return slicePublisher[T]{items: items}
}

type slicePublisher[T any] struct {
	items []T
}

func (p slicePublisher[T]) Subscribe(subscriber Subscriber[T]) {
	index := 0
	next := func() (T, error) {
		if index == len(p.items) {
			var zero T
			return zero, io.EOF
		}
		item := p.items[index]
		index++
		return item, nil
	}
	exhausted := func() bool { return index == len(p.items) }
	subscribePull(subscriber, next, exhausted)
}

// Just returns a publisher emitting the given items.
func Just[T any](items ...T) Publisher[T] {
	return FromSlice(items)
}

// Empty returns a publisher that completes immediately.
func Empty[T any]() Publisher[T] {
	return FromSlice[T](nil)
}

// Failed returns a publisher that fails every subscriber with err.
func Failed[T any](err error) Publisher[T] {
	return failedPublisher[T]{err: err}
}

type failedPublisher[T any] struct {
	err error
}

func (p failedPublisher[T]) Subscribe(subscriber Subscriber[T]) {
	Reject(subscriber, p.err)
}

// FromBytes returns a publisher emitting data in chunks of at most
// chunkSize bytes. The chunks share data's backing array. Empty data
// produces an empty stream.
func FromBytes(data []byte, chunkSize int) Publisher[[]byte] {
	return FromSlice(Split(data, chunkSize))
}

// Split cuts data into consecutive slices of at most size bytes,
// sharing data's backing array. A non-positive size returns data as a
// single chunk.
func Split(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if size <= 0 || size >= len(data) {
		return [][]byte{data[:len(data):len(data)]}
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}

// FromReader returns a single-use publisher that reads source on
// demand, one Read of up to chunkSize bytes per requested item. Reads
// happen on whichever goroutine calls Request, so a slow source blocks
// that goroutine. Every delivered chunk is a fresh allocation. A
// second subscriber is rejected with ErrConcurrentSubscription.
//
// If source implements io.Closer it is closed when the stream ends,
// fails, or is cancelled.
func FromReader(source io.Reader, chunkSize int) Publisher[[]byte] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readerPublisher{source: source, chunkSize: chunkSize}
}

type readerPublisher struct {
	source     io.Reader
	chunkSize  int
	subscribed atomic.Bool
	closeOnce  sync.Once
}

func (p *readerPublisher) Subscribe(subscriber Subscriber[[]byte]) {
	if !p.subscribed.CompareAndSwap(false, true) {
		Reject(subscriber, ErrConcurrentSubscription)
		return
	}
	var sawEOF bool
	next := func() ([]byte, error) {
		for !sawEOF {
			buffer := make([]byte, p.chunkSize)
			count, err := p.source.Read(buffer)
			if errors.Is(err, io.EOF) {
				sawEOF = true
			} else if err != nil {
				p.close()
				return nil, fmt.Errorf("read source: %w", err)
			}
			if count > 0 {
				return buffer[:count:count], nil
			}
		}
		p.close()
		return nil, io.EOF
	}
	subscribePull(subscriber, next, nil, p.close)
}

func (p *readerPublisher) close() {
	p.closeOnce.Do(func() {
		if closer, ok := p.source.(io.Closer); ok {
			closer.Close()
		}
	})
}

// pullSubscription delivers items obtained from next as demand allows.
type pullSubscription[T any] struct {
	subscriber Subscriber[T]
	next       func() (T, error)
	exhausted  func() bool
	onCancel   []func()

	demand    Demand
	drainer   Drainer
	cancelled atomic.Bool
	invalid   atomic.Bool

	// done is owned by the drain loop.
	done bool
}

func subscribePull[T any](subscriber Subscriber[T], next func() (T, error), exhausted func() bool, onCancel ...func()) {
	subscription := &pullSubscription[T]{
		subscriber: subscriber,
		next:       next,
		exhausted:  exhausted,
		onCancel:   onCancel,
	}
	subscriber.OnSubscribe(subscription)
	subscription.drainer.Run(subscription.drain)
}

func (s *pullSubscription[T]) Request(n int64) {
	if n <= 0 {
		s.invalid.Store(true)
	} else {
		s.demand.Add(n)
	}
	s.drainer.Run(s.drain)
}

func (s *pullSubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		for _, hook := range s.onCancel {
			hook()
		}
	}
}

func (s *pullSubscription[T]) drain() {
	for !s.done {
		if s.cancelled.Load() {
			s.done = true
			return
		}
		if s.invalid.Load() {
			s.done = true
			s.Cancel()
			s.subscriber.OnError(ErrNonPositiveRequest)
			return
		}
		if s.exhausted != nil && s.exhausted() {
			s.done = true
			s.subscriber.OnComplete()
			return
		}
		if s.demand.Load() <= 0 {
			return
		}
		item, err := s.next()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				s.subscriber.OnComplete()
			} else {
				s.subscriber.OnError(err)
			}
			return
		}
		s.demand.Take()
		s.subscriber.OnNext(item)
	}
}
