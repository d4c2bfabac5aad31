// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package flowtest provides a recording subscriber for tests of
// demand-driven streams.
package flowtest

import (
	"sync"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// Recorder is a Subscriber that records every signal and leaves demand
// entirely to the test: it requests nothing on its own unless Initial
// is set before subscribing.
type Recorder[T any] struct {
	// Initial is requested from inside OnSubscribe when positive.
	Initial int64

	// OnItem, when set, runs inside OnNext after the item is recorded.
	// Tests use it to react synchronously (request more, cancel).
	OnItem func(recorder *Recorder[T], item T)

	mutex        sync.Mutex
	subscription flow.Subscription
	items        []T
	err          error
	completed    bool
	subscribes   int
	done         chan struct{}
	doneOnce     sync.Once
}

// NewRecorder returns a recorder that requests initial items on
// subscription.
func NewRecorder[T any](initial int64) *Recorder[T] {
	return &Recorder[T]{Initial: initial}
}

func (r *Recorder[T]) OnSubscribe(subscription flow.Subscription) {
	r.mutex.Lock()
	r.subscription = subscription
	r.subscribes++
	r.mutex.Unlock()
	if r.Initial > 0 {
		subscription.Request(r.Initial)
	}
}

func (r *Recorder[T]) OnNext(item T) {
	r.mutex.Lock()
	r.items = append(r.items, item)
	r.mutex.Unlock()
	if r.OnItem != nil {
		r.OnItem(r, item)
	}
}

func (r *Recorder[T]) OnError(err error) {
	r.mutex.Lock()
	r.err = err
	r.mutex.Unlock()
	r.finish()
}

func (r *Recorder[T]) OnComplete() {
	r.mutex.Lock()
	r.completed = true
	r.mutex.Unlock()
	r.finish()
}

func (r *Recorder[T]) finish() {
	r.doneChannel()
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Recorder[T]) doneChannel() chan struct{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.done == nil {
		r.done = make(chan struct{})
	}
	return r.done
}

// Done returns a channel closed when a terminal signal arrives.
func (r *Recorder[T]) Done() <-chan struct{} {
	return r.doneChannel()
}

// Request forwards n to the subscription.
func (r *Recorder[T]) Request(n int64) {
	r.mutex.Lock()
	subscription := r.subscription
	r.mutex.Unlock()
	subscription.Request(n)
}

// Cancel cancels the subscription.
func (r *Recorder[T]) Cancel() {
	r.mutex.Lock()
	subscription := r.subscription
	r.mutex.Unlock()
	subscription.Cancel()
}

// Items returns a copy of the items received so far.
func (r *Recorder[T]) Items() []T {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]T(nil), r.items...)
}

// Err returns the error received through OnError, if any.
func (r *Recorder[T]) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.err
}

// Completed reports whether OnComplete was received.
func (r *Recorder[T]) Completed() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.completed
}

// Terminated reports whether either terminal signal was received.
func (r *Recorder[T]) Terminated() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.completed || r.err != nil
}

// Subscribed reports whether OnSubscribe has been called.
func (r *Recorder[T]) Subscribed() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.subscribes > 0
}
