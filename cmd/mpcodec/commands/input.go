// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/config"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
)

// sniffWindow bounds how far into the input boundary detection looks
// for the first delimiter line.
const sniffWindow = 8 * 1024

// messageParams are the flags shared by commands that read a message.
type messageParams struct {
	Config      string `flag:"config" desc:"configuration file (default: $MPCODEC_CONFIG)"`
	Boundary    string `flag:"boundary" desc:"boundary token of the message"`
	ContentType string `flag:"content-type" desc:"Content-Type header of the message, e.g. 'multipart/form-data; boundary=xyz'"`
}

// loadConfig reads path, else the file named by MPCODEC_CONFIG, else
// returns the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// openInput opens the file named by the single positional argument, or
// stdin when there is none.
func openInput(args []string, stdin io.Reader) (io.ReadCloser, string, error) {
	switch len(args) {
	case 0:
		return io.NopCloser(stdin), "stdin", nil
	case 1:
		file, err := os.Open(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return nil, "", cli.NotFound("open %s: %w", args[0], err)
			}
			return nil, "", fmt.Errorf("open %s: %w", args[0], err)
		}
		return file, args[0], nil
	default:
		return nil, "", cli.Validation("expected at most one input file, got %d", len(args))
	}
}

// resolveBoundary picks the boundary of an inbound message: the
// --boundary flag, then the boundary parameter of --content-type, then
// a fixed boundary from the configuration, then the first delimiter
// line found in the input itself.
func resolveBoundary(params messageParams, cfg *config.Config, input *bufio.Reader) (multipart.Boundary, error) {
	switch {
	case params.Boundary != "":
		boundary, err := multipart.NewBoundary(params.Boundary)
		if err != nil {
			return multipart.Boundary{}, cli.Validation("--boundary: %w", err)
		}
		return boundary, nil
	case params.ContentType != "":
		boundary, err := multipart.BoundaryFromContentType(params.ContentType)
		if err != nil {
			return multipart.Boundary{}, cli.Validation("--content-type: %w", err)
		}
		return boundary, nil
	case cfg.Boundary != "" && cfg.Boundary != "random":
		return multipart.NewBoundary(cfg.Boundary)
	}
	boundary, err := sniffBoundary(input)
	if err != nil {
		return multipart.Boundary{}, cli.Validation("%w", err).
			WithHint("Pass --boundary or --content-type to name the message boundary.")
	}
	return boundary, nil
}

// sniffBoundary finds the first line of input that looks like a
// delimiter and returns its token. Input is peeked, not consumed.
func sniffBoundary(input *bufio.Reader) (multipart.Boundary, error) {
	window, err := input.Peek(min(sniffWindow, input.Size()))
	if errors.Is(err, bufio.ErrBufferFull) {
		err = nil
	}
	if len(window) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return multipart.Boundary{}, fmt.Errorf("%w: input is empty", multipart.ErrMissingBoundary)
		}
		return multipart.Boundary{}, fmt.Errorf("read input: %w", err)
	}

	remaining := window
	for len(remaining) > 0 {
		line := remaining
		rest := []byte(nil)
		if end := bytes.IndexByte(remaining, '\n'); end >= 0 {
			line, rest = remaining[:end], remaining[end+1:]
		}
		remaining = rest

		line = bytes.TrimRight(line, " \t\r")
		if !bytes.HasPrefix(line, []byte("--")) || len(line) == 2 {
			continue
		}
		token := line[2:]
		// A close delimiter with nothing after it is a message with
		// no parts.
		if len(bytes.TrimSpace(rest)) == 0 && bytes.HasSuffix(token, []byte("--")) && len(token) > 2 {
			token = token[:len(token)-2]
		}
		return multipart.NewBoundary(string(token))
	}
	return multipart.Boundary{}, fmt.Errorf("%w: no delimiter line in the first %d bytes", multipart.ErrMissingBoundary, len(window))
}
