// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package flow_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bureau-foundation/mpcodec/lib/flow"
	"github.com/bureau-foundation/mpcodec/lib/flow/flowtest"
)

func TestFromSliceHonorsDemand(t *testing.T) {
	recorder := flowtest.NewRecorder[int](0)
	flow.FromSlice([]int{1, 2, 3, 4}).Subscribe(recorder)

	if got := recorder.Items(); len(got) != 0 {
		t.Fatalf("items delivered without demand: %v", got)
	}

	recorder.Request(2)
	if got := recorder.Items(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("after Request(2): %v", got)
	}
	if recorder.Terminated() {
		t.Fatal("stream terminated early")
	}

	recorder.Request(2)
	if got := recorder.Items(); len(got) != 4 {
		t.Fatalf("after Request(2) again: %v", got)
	}
	if !recorder.Completed() {
		t.Error("stream should complete right after the last item")
	}
}

func TestEmptyCompletesWithoutDemand(t *testing.T) {
	recorder := flowtest.NewRecorder[string](0)
	flow.Empty[string]().Subscribe(recorder)
	if !recorder.Completed() {
		t.Error("empty publisher should complete on subscribe")
	}
}

func TestFailedPublisher(t *testing.T) {
	failure := errors.New("boom")
	recorder := flowtest.NewRecorder[int](1)
	flow.Failed[int](failure).Subscribe(recorder)
	if !errors.Is(recorder.Err(), failure) {
		t.Errorf("Err = %v, want %v", recorder.Err(), failure)
	}
}

func TestNonPositiveRequestFails(t *testing.T) {
	recorder := flowtest.NewRecorder[int](0)
	flow.Just(1, 2).Subscribe(recorder)
	recorder.Request(0)
	if !errors.Is(recorder.Err(), flow.ErrNonPositiveRequest) {
		t.Errorf("Err = %v, want ErrNonPositiveRequest", recorder.Err())
	}
	if len(recorder.Items()) != 0 {
		t.Errorf("items delivered after invalid request: %v", recorder.Items())
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	recorder := flowtest.NewRecorder[int](0)
	recorder.OnItem = func(r *flowtest.Recorder[int], item int) {
		if item == 2 {
			r.Cancel()
		}
	}
	flow.Just(1, 2, 3, 4).Subscribe(recorder)
	recorder.Request(flow.Unbounded)

	if got := recorder.Items(); len(got) != 2 {
		t.Errorf("items after cancel = %v, want [1 2]", got)
	}
	if recorder.Terminated() {
		t.Error("cancelled stream must not signal a terminal event")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		size  int
		wants []string
	}{
		{name: "empty", data: "", size: 3, wants: nil},
		{name: "exact", data: "abcdef", size: 3, wants: []string{"abc", "def"}},
		{name: "remainder", data: "abcdefg", size: 3, wants: []string{"abc", "def", "g"}},
		{name: "single", data: "ab", size: 0, wants: []string{"ab"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chunks := flow.Split([]byte(test.data), test.size)
			if len(chunks) != len(test.wants) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(test.wants))
			}
			for i, chunk := range chunks {
				if string(chunk) != test.wants[i] {
					t.Errorf("chunk %d = %q, want %q", i, chunk, test.wants[i])
				}
				if cap(chunk) != len(chunk) {
					t.Errorf("chunk %d has spare capacity %d", i, cap(chunk)-len(chunk))
				}
			}
		})
	}
}

func TestFromReaderChunksAndSingleUse(t *testing.T) {
	publisher := flow.FromReader(strings.NewReader("hello, world"), 5)

	chunks, err := flow.Collect(context.Background(), publisher)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if joined := string(bytes.Join(chunks, nil)); joined != "hello, world" {
		t.Errorf("joined = %q", joined)
	}

	second := flowtest.NewRecorder[[]byte](1)
	publisher.Subscribe(second)
	if !errors.Is(second.Err(), flow.ErrConcurrentSubscription) {
		t.Errorf("second subscription: Err = %v, want ErrConcurrentSubscription", second.Err())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestFromReaderPropagatesReadError(t *testing.T) {
	_, err := flow.CollectBytes(context.Background(), flow.FromReader(failingReader{}, 8))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want wrapped io.ErrUnexpectedEOF", err)
	}
}

func TestNewReaderReadsAllChunks(t *testing.T) {
	reader := flow.NewReader(context.Background(), flow.FromBytes([]byte("streamed content"), 4))
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "streamed content" {
		t.Errorf("data = %q", data)
	}
}

func TestNewReaderSurfacesStreamError(t *testing.T) {
	failure := errors.New("transport reset")
	reader := flow.NewReader(context.Background(), flow.Failed[[]byte](failure))
	_, err := io.ReadAll(reader)
	if !errors.Is(err, failure) {
		t.Errorf("err = %v, want %v", err, failure)
	}
}

func TestNewReaderHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := flow.NewReader(ctx, flow.Just([]byte("x")))
	if _, err := reader.Read(make([]byte, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWriteTo(t *testing.T) {
	var output bytes.Buffer
	written, err := flow.WriteTo(context.Background(), &output, flow.Just([]byte("ab"), []byte("cd"), []byte("e")))
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if written != 5 || output.String() != "abcde" {
		t.Errorf("written = %d, output = %q", written, output.String())
	}
}

func TestGenerateSubscribesIndependently(t *testing.T) {
	publisher := flow.Generate(func() func() (int, error) {
		count := 0
		return func() (int, error) {
			if count == 3 {
				return 0, io.EOF
			}
			count++
			return count, nil
		}
	})
	for round := 0; round < 2; round++ {
		items, err := flow.Collect(context.Background(), publisher)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if len(items) != 3 || items[2] != 3 {
			t.Errorf("round %d: items = %v", round, items)
		}
	}
}
