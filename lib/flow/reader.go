// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"io"
	"sync"
)

// NewReader subscribes to publisher and exposes its chunks as an
// io.ReadCloser. Each Read that finds no buffered bytes requests one
// chunk and blocks until it arrives, the stream ends, or ctx is done.
// Close cancels the subscription.
//
// The subscription is made immediately; no chunk is requested until
// the first Read.
func NewReader(ctx context.Context, publisher Publisher[[]byte]) io.ReadCloser {
	reader := &chunkReader{
		ctx: ctx,
		// One chunk plus the terminal signal that may follow it
		// synchronously inside Request.
		signals:    make(chan readerSignal, 2),
		subscribed: make(chan struct{}),
	}
	publisher.Subscribe(reader)
	return reader
}

type readerSignal struct {
	chunk []byte
	err   error
}

type chunkReader struct {
	ctx        context.Context
	signals    chan readerSignal
	subscribed chan struct{}

	subscription Subscription
	once         sync.Once

	// Read-side state, owned by the reading goroutine.
	current []byte
	err     error
	waiting bool
}

func (r *chunkReader) OnSubscribe(subscription Subscription) {
	r.subscription = subscription
	r.once.Do(func() { close(r.subscribed) })
}

func (r *chunkReader) OnNext(chunk []byte) {
	r.signals <- readerSignal{chunk: chunk}
}

func (r *chunkReader) OnError(err error) {
	r.signals <- readerSignal{err: err}
}

func (r *chunkReader) OnComplete() {
	r.signals <- readerSignal{err: io.EOF}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.current) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if err := r.await(); err != nil {
			return 0, err
		}
	}
	count := copy(p, r.current)
	r.current = r.current[count:]
	return count, nil
}

// await requests one chunk (unless a request is still outstanding) and
// waits for the next signal.
func (r *chunkReader) await() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-r.subscribed:
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
	if !r.waiting {
		r.waiting = true
		r.subscription.Request(1)
	}
	select {
	case signal := <-r.signals:
		if signal.err != nil {
			r.err = signal.err
			return nil
		}
		r.waiting = false
		r.current = signal.chunk
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *chunkReader) Close() error {
	select {
	case <-r.subscribed:
		r.subscription.Cancel()
	default:
	}
	if r.err == nil {
		r.err = io.ErrClosedPipe
	}
	return nil
}
