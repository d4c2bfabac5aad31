// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Collect subscribes to publisher with unbounded demand and returns
// every item once the stream completes. If ctx ends first the
// subscription is cancelled and ctx.Err() is returned.
func Collect[T any](ctx context.Context, publisher Publisher[T]) ([]T, error) {
	var items []T
	err := ForEach(ctx, publisher, func(item T) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CollectBytes collects a byte publisher into one contiguous slice.
func CollectBytes(ctx context.Context, publisher Publisher[[]byte]) ([]byte, error) {
	var data []byte
	err := ForEach(ctx, publisher, func(chunk []byte) error {
		data = append(data, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteTo copies every chunk of publisher to w, requesting one chunk
// at a time so a slow writer throttles the producer.
func WriteTo(ctx context.Context, w io.Writer, publisher Publisher[[]byte]) (int64, error) {
	var written int64
	err := forEach(ctx, publisher, 1, func(chunk []byte) error {
		count, err := w.Write(chunk)
		written += int64(count)
		if err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		return nil
	})
	return written, err
}

// ForEach calls fn for every item of publisher, in order, on the
// calling goroutine. If fn returns an error the subscription is
// cancelled and the error returned.
func ForEach[T any](ctx context.Context, publisher Publisher[T], fn func(T) error) error {
	return forEach(ctx, publisher, Unbounded, fn)
}

// forEach queues signals from the publisher and runs fn on the
// caller's goroutine, whatever goroutine the publisher delivers on.
// With batch < Unbounded, demand is replenished after each batch.
func forEach[T any](ctx context.Context, publisher Publisher[T], batch int64, fn func(T) error) error {
	subscriber := &queueSubscriber[T]{
		notify:     make(chan struct{}, 1),
		subscribed: make(chan Subscription, 1),
	}
	publisher.Subscribe(subscriber)

	var subscription Subscription
	select {
	case subscription = <-subscriber.subscribed:
	case <-ctx.Done():
		return ctx.Err()
	}
	subscription.Request(batch)

	var received int64
	for {
		signal, err := subscriber.receive(ctx)
		if err != nil {
			subscription.Cancel()
			return err
		}
		if signal.done {
			return signal.err
		}
		if err := fn(signal.item); err != nil {
			subscription.Cancel()
			return err
		}
		if batch != Unbounded {
			received++
			if received == batch {
				received = 0
				subscription.Request(batch)
			}
		}
	}
}

type queueSignal[T any] struct {
	item T
	done bool
	err  error
}

// queueSubscriber buffers signals in an unbounded queue. Demand bounds
// the queue in practice: it never holds more than the requested items
// plus one terminal signal.
type queueSubscriber[T any] struct {
	mutex      sync.Mutex
	queue      []queueSignal[T]
	notify     chan struct{}
	subscribed chan Subscription
}

func (s *queueSubscriber[T]) OnSubscribe(subscription Subscription) {
	s.subscribed <- subscription
}

func (s *queueSubscriber[T]) OnNext(item T) {
	s.push(queueSignal[T]{item: item})
}

func (s *queueSubscriber[T]) OnError(err error) {
	s.push(queueSignal[T]{done: true, err: err})
}

func (s *queueSubscriber[T]) OnComplete() {
	s.push(queueSignal[T]{done: true})
}

func (s *queueSubscriber[T]) push(signal queueSignal[T]) {
	s.mutex.Lock()
	s.queue = append(s.queue, signal)
	s.mutex.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *queueSubscriber[T]) receive(ctx context.Context) (queueSignal[T], error) {
	for {
		s.mutex.Lock()
		if len(s.queue) > 0 {
			signal := s.queue[0]
			s.queue[0] = queueSignal[T]{}
			s.queue = s.queue[1:]
			s.mutex.Unlock()
			return signal, nil
		}
		s.mutex.Unlock()
		select {
		case <-s.notify:
		case <-ctx.Done():
			return queueSignal[T]{}, ctx.Err()
		}
	}
}
