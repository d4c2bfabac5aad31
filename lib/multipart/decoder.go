// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// Decoder turns a stream of byte chunks into a stream of parts. It is a
// flow.Processor: subscribe it to the transport's byte publisher and
// subscribe one part subscriber to it.
//
// Upstream chunks are requested one at a time, and only while there is
// unmet demand for parts or for the current part's content. Each part's
// content is a nested single-subscriber stream. While a part is
// outstanding and nobody has subscribed to its content, demand for
// further parts drains the rest of it; a content subscriber that
// cancels drains it too.
//
// Every signal is delivered by whichever goroutine runs the decoder's
// loop at the time, one at a time.
type Decoder struct {
	boundary   Boundary
	options    options
	logger     *slog.Logger
	drainer    flow.Drainer
	partDemand flow.Demand

	mutex           sync.Mutex
	upstream        flow.Subscription
	downstream      flow.Subscriber[*ReadablePart]
	downstreamReady bool
	inbound         [][]byte
	requested       bool
	upstreamDone    bool
	upstreamErr     error
	cancelled       bool
	invalid         bool
	notified        bool

	// Owned by the loop.
	assembler   *assembler
	inputClosed bool
	current     *partContent
	pendingPart *ReadablePart
	terminal    bool
	terminalErr error
}

// NewDecoder returns a decoder for messages delimited by boundary.
func NewDecoder(boundary Boundary, options ...Option) *Decoder {
	resolved := buildOptions(options)
	return &Decoder{
		boundary:  boundary,
		options:   resolved,
		logger:    resolved.logger.With("boundary", boundary.Token()),
		assembler: newAssembler(boundary, resolved.limits),
	}
}

// Subscribe attaches the part subscriber. A second subscriber is
// rejected with ErrConcurrentSubscription.
func (d *Decoder) Subscribe(subscriber flow.Subscriber[*ReadablePart]) {
	d.mutex.Lock()
	if d.downstream != nil {
		d.mutex.Unlock()
		flow.Reject(subscriber, ErrConcurrentSubscription)
		return
	}
	d.downstream = subscriber
	d.mutex.Unlock()

	subscriber.OnSubscribe(partsSubscription{decoder: d})

	d.mutex.Lock()
	d.downstreamReady = true
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}

// OnSubscribe binds the upstream byte subscription. A second upstream
// subscription is cancelled immediately.
func (d *Decoder) OnSubscribe(subscription flow.Subscription) {
	d.mutex.Lock()
	if d.upstream != nil {
		d.mutex.Unlock()
		d.logger.Warn("rejecting second upstream subscription")
		subscription.Cancel()
		return
	}
	d.upstream = subscription
	cancelled := d.cancelled
	d.mutex.Unlock()

	if cancelled {
		subscription.Cancel()
		return
	}
	d.drainer.Run(d.advance)
}

// OnNext receives one upstream chunk. The decoder takes ownership of
// it.
func (d *Decoder) OnNext(chunk []byte) {
	d.mutex.Lock()
	d.requested = false
	d.inbound = append(d.inbound, chunk)
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}

// OnError receives an upstream failure. It is passed to the part
// subscriber unchanged.
func (d *Decoder) OnError(err error) {
	d.mutex.Lock()
	d.upstreamDone = true
	d.upstreamErr = err
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}

// OnComplete marks the end of upstream input.
func (d *Decoder) OnComplete() {
	d.mutex.Lock()
	d.upstreamDone = true
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}

type partsSubscription struct {
	decoder *Decoder
}

func (s partsSubscription) Request(n int64) {
	d := s.decoder
	if n <= 0 {
		d.mutex.Lock()
		d.invalid = true
		d.mutex.Unlock()
	} else {
		d.partDemand.Add(n)
	}
	d.drainer.Run(d.advance)
}

// Cancel cancels upstream before returning. Work in flight is
// abandoned, including the drain of a partly read part.
func (s partsSubscription) Cancel() {
	d := s.decoder
	d.mutex.Lock()
	if d.cancelled {
		d.mutex.Unlock()
		return
	}
	d.cancelled = true
	upstream := d.upstream
	d.mutex.Unlock()

	if upstream != nil {
		upstream.Cancel()
	}
	d.drainer.Run(d.advance)
}

// advance runs the decoder until it can make no further progress.
func (d *Decoder) advance() {
	for {
		if d.terminal {
			d.notifyDownstream()
			return
		}

		d.mutex.Lock()
		cancelled := d.cancelled
		invalid := d.invalid
		inbound := d.inbound
		d.inbound = nil
		upstreamDone := d.upstreamDone
		upstreamErr := d.upstreamErr
		d.mutex.Unlock()

		if cancelled {
			d.abandon()
			return
		}
		if invalid {
			d.fail(flow.ErrNonPositiveRequest, true)
			continue
		}
		for _, chunk := range inbound {
			// Offer only fails after close, and close follows the
			// last chunk.
			_ = d.assembler.offer(chunk)
		}
		if upstreamErr != nil {
			d.fail(upstreamErr, false)
			continue
		}
		if upstreamDone && !d.inputClosed {
			d.inputClosed = true
			d.assembler.close()
		}

		var progressed bool
		if d.current != nil {
			progressed = d.stepContent()
		} else {
			progressed = d.stepBetweenParts()
		}
		if !progressed {
			return
		}
	}
}

func (d *Decoder) stepBetweenParts() bool {
	if d.pendingPart != nil {
		d.mutex.Lock()
		ready := d.downstreamReady
		d.mutex.Unlock()
		if !ready || !d.partDemand.Take() {
			return false
		}
		part := d.pendingPart
		d.pendingPart = nil
		d.current = part.body.(*partContent)
		d.logger.Debug("multipart part ready", "index", part.index, "headers", part.header.Len())
		d.downstream.OnNext(part)
		return true
	}

	next, err := d.assembler.next()
	if err != nil {
		d.fail(err, true)
		return true
	}
	switch next.kind {
	case signalNeedData:
		if d.partDemand.Load() > 0 {
			d.requestUpstream()
		}
		return false
	case signalPart:
		content := &partContent{decoder: d, index: next.index}
		d.pendingPart = &ReadablePart{
			header:  next.header,
			index:   next.index,
			body:    content,
			options: d.options,
		}
		return true
	case signalMessageEnd:
		d.complete()
		return true
	default:
		d.fail(fmt.Errorf("multipart: unexpected signal %d between parts", next.kind), true)
		return true
	}
}

func (d *Decoder) stepContent() bool {
	content := d.current

	d.mutex.Lock()
	if content.invalid && content.subscriber != nil && !content.notified {
		content.notified = true
		content.discard = true
		subscriber := content.subscriber
		content.subscriber = nil
		d.mutex.Unlock()
		subscriber.OnError(flow.ErrNonPositiveRequest)
		return true
	}
	if content.cancelled && content.subscriber != nil {
		content.subscriber = nil
		content.discard = true
		d.logger.Debug("content subscriber cancelled, draining part", "index", content.index)
	}
	if !content.subscribed && !content.discard && d.partDemand.Load() > 0 {
		content.discard = true
		d.logger.Debug("draining unread part content", "index", content.index)
	}
	discard := content.discard
	var subscriber flow.Subscriber[[]byte]
	if content.ready && !content.notified {
		subscriber = content.subscriber
	}
	d.mutex.Unlock()

	if content.pending != nil {
		if discard {
			content.pending = nil
			return true
		}
		if subscriber == nil || !content.demand.Take() {
			return false
		}
		chunk := content.pending
		content.pending = nil
		subscriber.OnNext(chunk)
		return true
	}

	if !discard && (subscriber == nil || content.demand.Load() <= 0) {
		return false
	}

	next, err := d.assembler.next()
	if err != nil {
		d.fail(err, true)
		return true
	}
	switch next.kind {
	case signalNeedData:
		d.requestUpstream()
		return false
	case signalContent:
		content.pending = next.data
		return true
	case signalPartEnd:
		d.current = nil
		content.finish(nil)
		return true
	default:
		d.fail(fmt.Errorf("multipart: unexpected signal %d inside a part", next.kind), true)
		return true
	}
}

func (d *Decoder) requestUpstream() {
	d.mutex.Lock()
	if d.upstream == nil || d.requested || d.upstreamDone {
		d.mutex.Unlock()
		return
	}
	d.requested = true
	upstream := d.upstream
	d.mutex.Unlock()
	upstream.Request(1)
}

func (d *Decoder) cancelUpstream() {
	d.mutex.Lock()
	upstream := d.upstream
	done := d.upstreamDone
	d.mutex.Unlock()
	if upstream != nil && !done {
		upstream.Cancel()
	}
}

func (d *Decoder) fail(err error, cancelUpstream bool) {
	d.terminal = true
	d.terminalErr = err
	if cancelUpstream {
		d.cancelUpstream()
	}
	d.logger.Warn("multipart decode failed", "error", err)
	if d.current != nil {
		d.current.pending = nil
		d.current.finish(err)
		d.current = nil
	}
	d.pendingPart = nil
}

func (d *Decoder) complete() {
	d.terminal = true
	d.cancelUpstream()
	d.logger.Debug("multipart message complete")
}

// abandon stops all work after the part subscriber cancelled.
func (d *Decoder) abandon() {
	d.terminal = true
	d.mutex.Lock()
	d.notified = true
	d.mutex.Unlock()
	d.logger.Debug("multipart decode cancelled")
	if d.current != nil {
		d.current.pending = nil
		d.current.finish(ErrCancelled)
		d.current = nil
	}
	d.pendingPart = nil
}

func (d *Decoder) notifyDownstream() {
	d.mutex.Lock()
	if d.notified || !d.downstreamReady {
		d.mutex.Unlock()
		return
	}
	d.notified = true
	downstream := d.downstream
	d.mutex.Unlock()

	if d.terminalErr != nil {
		downstream.OnError(d.terminalErr)
	} else {
		downstream.OnComplete()
	}
}

// partContent is the nested content stream of one decoded part. Its
// state is guarded by the decoder's mutex; pending is owned by the
// decoder loop.
type partContent struct {
	decoder *Decoder
	index   int
	demand  flow.Demand

	subscriber flow.Subscriber[[]byte]
	subscribed bool
	ready      bool
	cancelled  bool
	invalid    bool
	discard    bool
	finished   bool
	finishErr  error
	notified   bool

	pending []byte
}

func (c *partContent) Subscribe(subscriber flow.Subscriber[[]byte]) {
	d := c.decoder
	d.mutex.Lock()
	if c.subscribed {
		d.mutex.Unlock()
		flow.Reject(subscriber, ErrConcurrentSubscription)
		return
	}
	if c.discard {
		d.mutex.Unlock()
		flow.Reject(subscriber, ErrContentConsumed)
		return
	}
	c.subscribed = true
	c.subscriber = subscriber
	d.mutex.Unlock()

	subscriber.OnSubscribe(c)

	d.mutex.Lock()
	c.ready = true
	d.mutex.Unlock()
	c.notifyTerminal()
	d.drainer.Run(d.advance)
}

func (c *partContent) Request(n int64) {
	d := c.decoder
	if n <= 0 {
		d.mutex.Lock()
		c.invalid = true
		d.mutex.Unlock()
	} else {
		c.demand.Add(n)
	}
	d.drainer.Run(d.advance)
}

func (c *partContent) Cancel() {
	d := c.decoder
	d.mutex.Lock()
	c.cancelled = true
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}

// finish records the end of the content and signals the subscriber
// if it is ready.
func (c *partContent) finish(err error) {
	d := c.decoder
	d.mutex.Lock()
	if !c.finished {
		c.finished = true
		c.finishErr = err
	}
	d.mutex.Unlock()
	c.notifyTerminal()
}

func (c *partContent) notifyTerminal() {
	d := c.decoder
	d.mutex.Lock()
	if !c.finished || c.notified || !c.ready || c.subscriber == nil {
		d.mutex.Unlock()
		return
	}
	c.notified = true
	subscriber := c.subscriber
	err := c.finishErr
	d.mutex.Unlock()

	if err != nil {
		subscriber.OnError(err)
	} else {
		subscriber.OnComplete()
	}
}

func (c *partContent) publisher() flow.Publisher[[]byte] {
	return c
}

func (c *partContent) reader(ctx context.Context) io.ReadCloser {
	return flow.NewReader(ctx, c)
}

func (c *partContent) drain() {
	d := c.decoder
	d.mutex.Lock()
	c.discard = true
	d.mutex.Unlock()
	d.drainer.Run(d.advance)
}
