// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import "errors"

// Publisher produces a sequence of items for subscribers that request
// them. Each call to Subscribe starts delivery to one subscriber;
// single-use publishers reject additional subscribers with
// [ErrConcurrentSubscription].
type Publisher[T any] interface {
	Subscribe(subscriber Subscriber[T])
}

// Subscriber receives the signals of one subscription. OnSubscribe is
// always called first. OnNext is called at most as many times as
// requested. OnError and OnComplete are terminal and mutually
// exclusive.
type Subscriber[T any] interface {
	OnSubscribe(subscription Subscription)
	OnNext(item T)
	OnError(err error)
	OnComplete()
}

// Subscription is the subscriber's handle on a running stream.
// Request and Cancel may be called from any goroutine, including from
// inside the subscriber's own callbacks.
type Subscription interface {
	// Request adds n to the outstanding demand. A non-positive n is a
	// protocol violation: the stream fails with ErrNonPositiveRequest.
	Request(n int64)

	// Cancel stops delivery. Signals already in flight may still
	// arrive. Cancel is idempotent.
	Cancel()
}

// Processor is a stage that subscribes to one publisher and publishes
// the transformed sequence.
type Processor[In, Out any] interface {
	Subscriber[In]
	Publisher[Out]
}

var (
	// ErrConcurrentSubscription is returned or signalled when a
	// single-subscriber stage receives a second subscription while one
	// is already bound.
	ErrConcurrentSubscription = errors.New("input subscription already set")

	// ErrNonPositiveRequest is signalled when a subscriber requests
	// zero or a negative number of items.
	ErrNonPositiveRequest = errors.New("request must be positive")
)

// NoopSubscription ignores requests and cancellation. It is handed to
// subscribers that are rejected immediately after OnSubscribe.
type NoopSubscription struct{}

func (NoopSubscription) Request(int64) {}
func (NoopSubscription) Cancel()       {}

// Reject signals subscriber that it cannot be served: OnSubscribe with
// a no-op subscription followed by OnError(err).
func Reject[T any](subscriber Subscriber[T], err error) {
	subscriber.OnSubscribe(NoopSubscription{})
	subscriber.OnError(err)
}
