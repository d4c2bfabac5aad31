// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bureau-foundation/mpcodec/cmd/mpcodec/cli"
	"github.com/bureau-foundation/mpcodec/lib/config"
	"github.com/bureau-foundation/mpcodec/lib/multipart"
)

func TestSniffBoundary(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"first line", "--abc\r\nX-A: 1\r\n\r\nbody\r\n--abc--", "abc"},
		{"after preamble", "This is a preamble.\r\n\r\n--abc\r\n\r\nbody\r\n--abc--", "abc"},
		{"bare line feeds", "--abc\n\nbody\n--abc--\n", "abc"},
		{"transport padding", "--abc \t\r\n\r\nbody\r\n--abc--", "abc"},
		{"empty message", "--abc--", "abc"},
		{"empty message with line break", "--abc--\r\n", "abc"},
		{"dashes inside token", "--=_a--b\r\n\r\nx\r\n--=_a--b--", "=_a--b"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			boundary, err := sniffBoundary(bufio.NewReader(strings.NewReader(test.input)))
			if err != nil {
				t.Fatalf("sniffBoundary: %v", err)
			}
			if boundary.Token() != test.want {
				t.Errorf("token = %q, want %q", boundary.Token(), test.want)
			}
		})
	}
}

func TestSniffBoundaryDoesNotConsume(t *testing.T) {
	const message = "--abc\r\n\r\nbody\r\n--abc--"
	reader := bufio.NewReader(strings.NewReader(message))
	if _, err := sniffBoundary(reader); err != nil {
		t.Fatalf("sniffBoundary: %v", err)
	}
	rest, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(rest) != message {
		t.Errorf("remaining input = %q, want %q", rest, message)
	}
}

func TestSniffBoundaryErrors(t *testing.T) {
	for _, input := range []string{"", "no delimiter here\r\nor here\r\n", "--\r\n"} {
		_, err := sniffBoundary(bufio.NewReader(strings.NewReader(input)))
		if !errors.Is(err, multipart.ErrMissingBoundary) {
			t.Errorf("sniffBoundary(%q) = %v, want ErrMissingBoundary", input, err)
		}
	}
}

func TestResolveBoundary(t *testing.T) {
	const message = "--sniffed\r\n\r\nx\r\n--sniffed--"
	configured := config.Default()
	configured.Boundary = "configured"

	tests := []struct {
		name   string
		params messageParams
		cfg    *config.Config
		want   string
	}{
		{"flag wins", messageParams{Boundary: "flag", ContentType: "multipart/mixed; boundary=header"}, configured, "flag"},
		{"content type", messageParams{ContentType: "multipart/mixed; boundary=header"}, configured, "header"},
		{"configuration", messageParams{}, configured, "configured"},
		{"sniffed", messageParams{}, config.Default(), "sniffed"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			boundary, err := resolveBoundary(test.params, test.cfg, bufio.NewReader(strings.NewReader(message)))
			if err != nil {
				t.Fatalf("resolveBoundary: %v", err)
			}
			if boundary.Token() != test.want {
				t.Errorf("token = %q, want %q", boundary.Token(), test.want)
			}
		})
	}
}

func TestResolveBoundaryErrors(t *testing.T) {
	tests := []struct {
		name   string
		params messageParams
		input  string
		want   error
	}{
		{"content type without boundary", messageParams{ContentType: "multipart/mixed"}, "", multipart.ErrMissingBoundary},
		{"content type not multipart", messageParams{ContentType: "text/plain; boundary=x"}, "", multipart.ErrMalformedMultipart},
		{"nothing to sniff", messageParams{}, "plain text", multipart.ErrMissingBoundary},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := resolveBoundary(test.params, config.Default(), bufio.NewReader(strings.NewReader(test.input)))
			if !errors.Is(err, test.want) {
				t.Fatalf("error = %v, want %v", err, test.want)
			}
			var toolErr *cli.ToolError
			if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
				t.Errorf("error = %#v, want a validation ToolError", err)
			}
		})
	}
}

func TestOpenInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.bin")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("stdin", func(t *testing.T) {
		input, name, err := openInput(nil, strings.NewReader("from stdin"))
		if err != nil {
			t.Fatalf("openInput: %v", err)
		}
		defer input.Close()
		data, _ := io.ReadAll(input)
		if name != "stdin" || string(data) != "from stdin" {
			t.Errorf("got %q from %q", data, name)
		}
	})

	t.Run("file", func(t *testing.T) {
		input, name, err := openInput([]string{path}, strings.NewReader("unused"))
		if err != nil {
			t.Fatalf("openInput: %v", err)
		}
		defer input.Close()
		data, _ := io.ReadAll(input)
		if name != path || string(data) != "from file" {
			t.Errorf("got %q from %q", data, name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := openInput([]string{path + ".missing"}, nil)
		var toolErr *cli.ToolError
		if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryNotFound {
			t.Errorf("error = %v, want a not_found ToolError", err)
		}
	})

	t.Run("too many arguments", func(t *testing.T) {
		_, _, err := openInput([]string{path, path}, nil)
		var toolErr *cli.ToolError
		if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
			t.Errorf("error = %v, want a validation ToolError", err)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Subtype != config.Default().Subtype {
		t.Errorf("Subtype = %q, want the default", cfg.Subtype)
	}

	path := filepath.Join(t.TempDir(), "mpcodec.yaml")
	if err := os.WriteFile(path, []byte("subtype: mixed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, path)
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig from environment: %v", err)
	}
	if cfg.Subtype != "mixed" {
		t.Errorf("Subtype = %q, want mixed", cfg.Subtype)
	}
}

func TestSniffBoundaryBufferSizes(t *testing.T) {
	const message = "--abc\r\n\r\nbody\r\n--abc--"
	for _, size := range []int{16, 4096, sniffWindow, 2 * sniffWindow} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			boundary, err := sniffBoundary(bufio.NewReaderSize(strings.NewReader(message), size))
			if err != nil {
				t.Fatalf("sniffBoundary: %v", err)
			}
			if boundary.Token() != "abc" {
				t.Errorf("token = %q, want abc", boundary.Token())
			}

			_, err = sniffBoundary(bufio.NewReaderSize(strings.NewReader(""), size))
			if !errors.Is(err, multipart.ErrMissingBoundary) {
				t.Errorf("empty input: %v, want ErrMissingBoundary", err)
			}
		})
	}
}
