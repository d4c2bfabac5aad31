// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mpcodec/lib/entity"
	"github.com/bureau-foundation/mpcodec/lib/flow"
)

// Encoder serializes a stream of parts into a multipart byte stream.
// It subscribes to one part publisher (see Attach) and publishes the
// framed bytes to one subscriber.
//
// Each part is framed as the delimiter line, its header block
// ("Name:Value" CRLF per value), an empty line, the content produced by
// the entity registry, and the part terminator (CRLF unless
// WithPartTerminator says otherwise). The closing delimiter follows
// the last part with no line break after it.
//
// One part is in flight at a time: the next part is requested only
// after the current part's content has completed. Nothing is requested
// upstream, from parts or content, without downstream demand. Framing
// chunks and content chunks are one item each.
type Encoder struct {
	boundary Boundary
	options  options
	logger   *slog.Logger
	ctx      context.Context
	stop     context.CancelFunc
	demand   flow.Demand
	drainer  flow.Drainer

	mutex           sync.Mutex
	attached        bool
	upstream        flow.Subscription
	downstream      flow.Subscriber[[]byte]
	downstreamReady bool
	inbound         []*WritablePart
	partRequested   bool
	upstreamDone    bool
	upstreamErr     error
	cancelled       bool
	invalid         bool
	notified        bool
	closed          bool
	content         *contentSubscriber

	// Owned by the loop.
	output      [][]byte
	inPart      bool
	closing     bool
	parts       int
	terminal    bool
	terminalErr error
}

// NewEncoder returns an encoder writing boundary between parts.
func NewEncoder(boundary Boundary, options ...Option) *Encoder {
	resolved := buildOptions(options)
	ctx, stop := context.WithCancel(context.Background())
	return &Encoder{
		boundary: boundary,
		options:  resolved,
		logger:   resolved.logger.With("boundary", boundary.Token()),
		ctx:      ctx,
		stop:     stop,
	}
}

// ContentType returns the Content-Type of the encoded message,
// "multipart/<subtype>; boundary=<token>".
func (e *Encoder) ContentType() string {
	return e.boundary.ContentType(e.options.subtype)
}

// Attach subscribes the encoder to upstream and is the way to bind
// one. An encoder accepts one upstream for its lifetime; later calls
// return ErrConcurrentSubscription and leave the first subscription
// running.
func (e *Encoder) Attach(upstream flow.Publisher[*WritablePart]) error {
	e.mutex.Lock()
	if e.attached || e.upstream != nil {
		e.mutex.Unlock()
		return ErrConcurrentSubscription
	}
	e.attached = true
	e.mutex.Unlock()

	upstream.Subscribe(e)
	return nil
}

// Subscribe attaches the byte subscriber. A second subscriber is
// rejected with ErrConcurrentSubscription.
func (e *Encoder) Subscribe(subscriber flow.Subscriber[[]byte]) {
	e.mutex.Lock()
	if e.downstream != nil {
		e.mutex.Unlock()
		flow.Reject(subscriber, ErrConcurrentSubscription)
		return
	}
	e.downstream = subscriber
	e.mutex.Unlock()

	subscriber.OnSubscribe(encoderSubscription{encoder: e})

	e.mutex.Lock()
	e.downstreamReady = true
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

// OnSubscribe binds the part subscription. It is called by the
// publisher given to Attach; a publisher that calls it directly on an
// already bound encoder has its subscription cancelled and receives no
// error. Callers that need ErrConcurrentSubscription use Attach.
func (e *Encoder) OnSubscribe(subscription flow.Subscription) {
	e.mutex.Lock()
	if e.upstream != nil {
		e.mutex.Unlock()
		e.logger.Warn("rejecting second part subscription", "error", ErrConcurrentSubscription)
		subscription.Cancel()
		return
	}
	e.upstream = subscription
	cancelled := e.cancelled || e.closed
	e.mutex.Unlock()

	if cancelled {
		subscription.Cancel()
		return
	}
	e.drainer.Run(e.advance)
}

func (e *Encoder) OnNext(part *WritablePart) {
	e.mutex.Lock()
	e.partRequested = false
	e.inbound = append(e.inbound, part)
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

func (e *Encoder) OnError(err error) {
	e.mutex.Lock()
	e.upstreamDone = true
	e.upstreamErr = err
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

func (e *Encoder) OnComplete() {
	e.mutex.Lock()
	e.upstreamDone = true
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

type encoderSubscription struct {
	encoder *Encoder
}

func (s encoderSubscription) Request(n int64) {
	e := s.encoder
	if n <= 0 {
		e.mutex.Lock()
		e.invalid = true
		e.mutex.Unlock()
	} else {
		e.demand.Add(n)
	}
	e.drainer.Run(e.advance)
}

// Cancel cancels the part subscription and the current content
// subscription before returning.
func (s encoderSubscription) Cancel() {
	e := s.encoder
	e.mutex.Lock()
	if e.cancelled {
		e.mutex.Unlock()
		return
	}
	e.cancelled = true
	e.mutex.Unlock()
	e.release()
	e.drainer.Run(e.advance)
}

func (e *Encoder) advance() {
	for {
		if e.terminal {
			e.notifyDownstream()
			return
		}

		e.mutex.Lock()
		cancelled := e.cancelled
		invalid := e.invalid
		upstreamDone := e.upstreamDone
		upstreamErr := e.upstreamErr
		ready := e.downstreamReady
		e.mutex.Unlock()

		if cancelled {
			e.terminal = true
			e.mutex.Lock()
			e.notified = true
			e.mutex.Unlock()
			e.logger.Debug("multipart encode cancelled", "parts", e.parts)
			continue
		}
		if invalid {
			e.fail(flow.ErrNonPositiveRequest)
			continue
		}
		if upstreamErr != nil {
			e.fail(upstreamErr)
			continue
		}

		if len(e.output) > 0 {
			if !ready || !e.demand.Take() {
				return
			}
			chunk := e.output[0]
			e.output[0] = nil
			e.output = e.output[1:]
			e.downstream.OnNext(chunk)
			continue
		}
		if e.closing {
			e.terminal = true
			e.release()
			e.logger.Debug("multipart message encoded", "parts", e.parts)
			continue
		}
		if e.inPart {
			if !e.stepContent() {
				return
			}
			continue
		}

		e.mutex.Lock()
		var part *WritablePart
		if len(e.inbound) > 0 {
			part = e.inbound[0]
			e.inbound = e.inbound[1:]
		}
		e.mutex.Unlock()

		switch {
		case part != nil:
			e.startPart(part)
		case upstreamDone:
			e.output = append(e.output, e.boundary.CloseDelimiter())
			e.closing = true
		case e.demand.Load() > 0:
			e.requestPart()
			return
		default:
			return
		}
	}
}

func (e *Encoder) startPart(part *WritablePart) {
	index := e.parts
	e.parts++

	if err := part.header.validate(); err != nil {
		e.fail(fmt.Errorf("part %d: %w", index, err))
		return
	}
	mediaType, err := part.mediaType()
	if err != nil {
		e.fail(fmt.Errorf("part %d: %w", index, err))
		return
	}
	marshalled, err := e.options.registry.Marshal(e.ctx, part.entity, mediaType, entity.MarshalOptions{
		Encoding: part.encoding,
		Digest:   part.digest,
	})
	if err != nil {
		e.fail(fmt.Errorf("part %d: %w", index, err))
		return
	}

	header := part.header
	if marshalled.Encoding != "" || marshalled.Digest != "" {
		header = header.Clone()
		if marshalled.Encoding != "" {
			header.Set("Content-Encoding", string(marshalled.Encoding))
		}
		if marshalled.Digest != "" {
			header.Set("Content-Digest", marshalled.Digest)
		}
	}

	framing := make([]byte, 0, len(e.boundary.delimiter)+4+64*header.Len())
	framing = append(framing, e.boundary.delimiter...)
	framing = append(framing, '\r', '\n')
	framing = header.appendTo(framing)
	framing = append(framing, '\r', '\n')
	e.output = append(e.output, framing)
	e.inPart = true

	content := &contentSubscriber{encoder: e}
	e.mutex.Lock()
	e.content = content
	e.mutex.Unlock()

	e.logger.Debug("multipart part started", "index", index, "media_type", marshalled.MediaType.String())
	marshalled.Content.Subscribe(content)
}

// stepContent moves the current part's content forward. It returns
// false when it must wait for a signal.
func (e *Encoder) stepContent() bool {
	e.mutex.Lock()
	content := e.content
	var chunk []byte
	hasChunk := len(content.chunks) > 0
	if hasChunk {
		chunk = content.chunks[0]
		content.chunks[0] = nil
		content.chunks = content.chunks[1:]
	}
	done := content.done
	err := content.err
	e.mutex.Unlock()

	switch {
	case hasChunk:
		if len(chunk) > 0 {
			e.output = append(e.output, chunk)
		}
		return true
	case err != nil:
		e.fail(err)
		return true
	case done:
		e.output = append(e.output, []byte(e.options.terminator))
		e.inPart = false
		e.mutex.Lock()
		e.content = nil
		e.mutex.Unlock()
		return true
	case e.demand.Load() > 0:
		content.request()
		return false
	default:
		return false
	}
}

func (e *Encoder) requestPart() {
	e.mutex.Lock()
	if e.upstream == nil || e.partRequested || e.upstreamDone {
		e.mutex.Unlock()
		return
	}
	e.partRequested = true
	upstream := e.upstream
	e.mutex.Unlock()
	upstream.Request(1)
}

// release cancels the part subscription and the current content
// subscription, and stops in-flight marshalling.
func (e *Encoder) release() {
	e.mutex.Lock()
	e.closed = true
	upstream := e.upstream
	upstreamDone := e.upstreamDone
	var contentSubscription flow.Subscription
	if e.content != nil && !e.content.done {
		contentSubscription = e.content.subscription
	}
	e.mutex.Unlock()

	if upstream != nil && !upstreamDone {
		upstream.Cancel()
	}
	if contentSubscription != nil {
		contentSubscription.Cancel()
	}
	e.stop()
}

func (e *Encoder) fail(err error) {
	e.terminal = true
	e.terminalErr = err
	e.output = nil
	e.logger.Warn("multipart encode failed", "error", err, "parts", e.parts)
	e.release()
}

func (e *Encoder) notifyDownstream() {
	e.mutex.Lock()
	if e.notified || !e.downstreamReady {
		e.mutex.Unlock()
		return
	}
	e.notified = true
	downstream := e.downstream
	e.mutex.Unlock()

	if e.terminalErr != nil {
		downstream.OnError(e.terminalErr)
	} else {
		downstream.OnComplete()
	}
}

// contentSubscriber receives the content of the part in flight. Its
// fields are guarded by the encoder's mutex.
type contentSubscriber struct {
	encoder      *Encoder
	subscription flow.Subscription
	chunks       [][]byte
	requested    bool
	done         bool
	err          error
}

func (c *contentSubscriber) OnSubscribe(subscription flow.Subscription) {
	e := c.encoder
	e.mutex.Lock()
	if c.subscription != nil {
		e.mutex.Unlock()
		subscription.Cancel()
		return
	}
	c.subscription = subscription
	closed := e.closed
	e.mutex.Unlock()

	if closed {
		subscription.Cancel()
		return
	}
	e.drainer.Run(e.advance)
}

func (c *contentSubscriber) OnNext(chunk []byte) {
	e := c.encoder
	e.mutex.Lock()
	c.requested = false
	c.chunks = append(c.chunks, chunk)
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

func (c *contentSubscriber) OnError(err error) {
	e := c.encoder
	e.mutex.Lock()
	c.done = true
	c.err = fmt.Errorf("part content: %w", err)
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

func (c *contentSubscriber) OnComplete() {
	e := c.encoder
	e.mutex.Lock()
	c.done = true
	e.mutex.Unlock()
	e.drainer.Run(e.advance)
}

func (c *contentSubscriber) request() {
	e := c.encoder
	e.mutex.Lock()
	if c.subscription == nil || c.requested || c.done {
		e.mutex.Unlock()
		return
	}
	c.requested = true
	subscription := c.subscription
	e.mutex.Unlock()
	subscription.Request(1)
}
