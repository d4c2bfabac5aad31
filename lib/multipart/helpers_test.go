// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/mpcodec/lib/flow"
	"github.com/bureau-foundation/mpcodec/lib/flow/flowtest"
	"github.com/bureau-foundation/mpcodec/lib/testutil"
)

const testTimeout = 5 * time.Second

// decodedPart is a part with its content fully collected.
type decodedPart struct {
	header  *Header
	content []byte
}

// decodeChunks runs chunks through a Decoder, subscribing to every
// part's content as the part arrives and requesting parts one at a
// time.
func decodeChunks(t *testing.T, boundary Boundary, chunks [][]byte, options ...Option) ([]decodedPart, error) {
	t.Helper()
	decoder := NewDecoder(boundary, options...)

	var contents []*flowtest.Recorder[[]byte]
	var headers []*Header
	parts := flowtest.NewRecorder[*ReadablePart](1)
	parts.OnItem = func(recorder *flowtest.Recorder[*ReadablePart], part *ReadablePart) {
		content := flowtest.NewRecorder[[]byte](flow.Unbounded)
		contents = append(contents, content)
		headers = append(headers, part.Header())
		part.Content().Subscribe(content)
		recorder.Request(1)
	}
	decoder.Subscribe(parts)
	flow.FromSlice(chunks).Subscribe(decoder)
	testutil.RequireClosed(t, parts.Done(), testTimeout, "decoder termination")

	result := make([]decodedPart, len(contents))
	for index, content := range contents {
		if err := content.Err(); err != nil {
			return result, err
		}
		result[index] = decodedPart{header: headers[index], content: bytes.Join(content.Items(), nil)}
	}
	return result, parts.Err()
}

// manualSource is a byte publisher driven by the test: it records
// requests and cancellation, and the test pushes signals through the
// subscriber it captured.
type manualSource struct {
	mutex      sync.Mutex
	subscriber flow.Subscriber[[]byte]
	requested  int64
	cancelled  bool
}

func (s *manualSource) Subscribe(subscriber flow.Subscriber[[]byte]) {
	s.mutex.Lock()
	s.subscriber = subscriber
	s.mutex.Unlock()
	subscriber.OnSubscribe(s)
}

func (s *manualSource) Request(n int64) {
	s.mutex.Lock()
	s.requested += n
	s.mutex.Unlock()
}

func (s *manualSource) Cancel() {
	s.mutex.Lock()
	s.cancelled = true
	s.mutex.Unlock()
}

func (s *manualSource) Requested() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.requested
}

func (s *manualSource) Cancelled() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cancelled
}

func (s *manualSource) push(chunk string) {
	s.mutex.Lock()
	s.requested--
	subscriber := s.subscriber
	s.mutex.Unlock()
	subscriber.OnNext([]byte(chunk))
}

func (s *manualSource) fail(err error) {
	s.subscriber.OnError(err)
}

func (s *manualSource) complete() {
	s.subscriber.OnComplete()
}
